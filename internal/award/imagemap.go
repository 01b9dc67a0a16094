package award

// ImageMap maps normalised titles to image URLs for one brand. Iteration
// follows first insertion; a later Set for the same title replaces the URL
// but keeps its position.
type ImageMap struct {
	order []string
	urls  map[string]string
}

// NewImageMap returns an empty map.
func NewImageMap() *ImageMap {
	return &ImageMap{urls: make(map[string]string)}
}

// Set stores url under the normalised title. Blank titles or URLs are ignored.
func (m *ImageMap) Set(title, url string) {
	key := NormalizeTitle(title)
	if key == "" || url == "" {
		return
	}
	if _, ok := m.urls[key]; !ok {
		m.order = append(m.order, key)
	}
	m.urls[key] = url
}

// Get returns the URL stored for title.
func (m *ImageMap) Get(title string) (string, bool) {
	if m == nil {
		return "", false
	}
	url, ok := m.urls[NormalizeTitle(title)]
	return url, ok
}

// Len returns the number of titles.
func (m *ImageMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Each calls fn for every entry in iteration order until fn returns false.
func (m *ImageMap) Each(fn func(title, url string) bool) {
	if m == nil {
		return
	}
	for _, key := range m.order {
		if !fn(key, m.urls[key]) {
			return
		}
	}
}
