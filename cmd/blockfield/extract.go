package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	"github.com/kailas-cloud/blockfield/internal/repository/schemafile"
	chiTransport "github.com/kailas-cloud/blockfield/internal/transport/chi"
	"github.com/kailas-cloud/blockfield/internal/usecase/projection"
)

// fileDocument serves one local file as the only document.
type fileDocument struct {
	doc domdoc.Document
}

func (f fileDocument) Version(context.Context, string) (int64, error) { return f.doc.Version(), nil }

func (f fileDocument) Get(context.Context, string) (domdoc.Document, error) { return f.doc, nil }

// noMetadata forces every path onto the content parse.
type noMetadata struct{}

func (noMetadata) Load(context.Context, string) (dommeta.Set, error) { return dommeta.Set{}, nil }

func newExtractCmd() *cobra.Command {
	var schemaGlobs []string
	cmd := &cobra.Command{
		Use:   "extract <file> [paths...]",
		Short: "Parse a local document and print projected fields as JSON",
		Long: `Parse a local document and resolve field paths against the block schemas,
without a metadata store. With no paths every registered block present in the
document is printed. Use "-" to read the document from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := schemafile.Load(schemaGlobs)
			if err != nil {
				return err
			}
			content, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc, err := domdoc.New(documentName(args[0]), content, 1)
			if err != nil {
				return err
			}

			engine := projection.New(reg, fileDocument{doc: doc}, noMetadata{}, nil)
			res, err := engine.Project(cmd.Context(), doc.ID(), args[1:])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(chiTransport.NewProjectionResponse(res))
		},
	}
	cmd.Flags().StringSliceVarP(&schemaGlobs, "schema", "s", []string{"schema/**/*.yaml"}, "block schema files (globs)")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// documentName derives a valid document ID from a file name.
func documentName(path string) string {
	if path == "-" {
		return "stdin"
	}
	name := filepath.Base(path)
	if domdoc.ValidateID(name) != nil {
		return "document"
	}
	return name
}
