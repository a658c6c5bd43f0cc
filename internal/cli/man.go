package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra/doc"
)

func GenerateManPages(outDir string, build BuildInfo) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create man output directory: %w", err)
	}

	root := newRootCommand(io.Discard, io.Discard, build, nil)
	header := &doc.GenManHeader{
		Title:   "DAYBOOK",
		Section: "1",
		Source:  "Daybook " + build.Version,
		Manual:  "Daybook Manual",
	}

	if err := doc.GenManTree(root, header, outDir); err != nil {
		return fmt.Errorf("generate man pages: %w", err)
	}
	return nil
}
