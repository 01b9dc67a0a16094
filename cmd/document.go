package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/store"
)

var documentCmd = &cobra.Command{
	Use:   "document <collection> <document> [key]",
	Short: "Print a configuration document or one of its keys",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		data, err := st.GetDocument(cmd.Context(), args[0], args[1])
		if err != nil {
			return eris.Wrapf(err, "get document %s/%s", args[0], args[1])
		}
		if len(args) == 3 {
			data, err = documentKey(data, args[2])
			if err != nil {
				return err
			}
		}

		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			return eris.Wrap(err, "format document")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return err
	},
}

var documentImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load documents from a YAML file into the database store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := store.LoadDocuments(args[0])
		if err != nil {
			return err
		}

		w, err := initWriter(cmd.Context())
		if err != nil {
			return err
		}
		defer w.Close() //nolint:errcheck

		n, err := w.PutDocuments(cmd.Context(), docs)
		if err != nil {
			return eris.Wrap(err, "import documents")
		}
		zap.L().Info("documents imported", zap.String("file", args[0]), zap.Int64("rows", n))
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents\n", len(docs))
		return nil
	},
}

func init() {
	documentCmd.AddCommand(documentImportCmd)
	rootCmd.AddCommand(documentCmd)
}

// documentKey returns one top-level key of an object document.
func documentKey(data []byte, key string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, eris.Errorf("key %q not found: document is not an object", key)
	}
	value, ok := fields[key]
	if !ok {
		return nil, eris.Errorf("key %q not found", key)
	}
	return value, nil
}
