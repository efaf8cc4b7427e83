package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"go.klb.dev/imgclip/internal/clip"
)

func newPeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Show what the clipboard currently offers",
		Long: `Reads the clipboard the way a pasting application would and prints each
form found: MIME type, size, BLAKE3 digest and a text preview.

Compare the digest with the "blake3" field logged by a running imgclip to
confirm peers receive the exact bytes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runPeek(s)
		},
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	addLoggingFlags(f)
	addConfigFlag(f)

	return cmd
}

// peekEntry is one clipboard form as reported by peek.
type peekEntry struct {
	MIME    string `json:"mime"`
	Size    int    `json:"size_bytes"`
	Digest  string `json:"blake3"`
	Preview string `json:"preview,omitempty"`
}

func runPeek(s settings) error {
	s.startLogging()

	r, err := clip.New()
	if err != nil {
		return err
	}
	items, err := r.Read()
	if err != nil {
		return fmt.Errorf("read %s: %w", r.Name(), err)
	}
	clip.LogItems("clipboard read", items)

	entries := peekEntries(items)
	if s.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printPeek(os.Stdout, entries)
	return nil
}

func peekEntries(items []clip.Item) []peekEntry {
	out := make([]peekEntry, 0, len(items))
	for _, it := range items {
		sum := blake3.Sum256(it.Data)
		e := peekEntry{
			MIME:   it.MIME,
			Size:   len(it.Data),
			Digest: hex.EncodeToString(sum[:]),
		}
		if it.MIME == clip.MIMEText {
			e.Preview = clip.Preview(it.Data, 60)
		}
		out = append(out, e)
	}
	return out
}

func printPeek(w io.Writer, entries []peekEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Clipboard is empty or offers no text/image form.")
		return
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "MIME\tSIZE\tBLAKE3\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "----\t----\t------\t-------\n")
	for _, e := range entries {
		preview := e.Preview
		if preview == "" {
			preview = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.MIME, e.Size, e.Digest[:16], preview)
	}
	_ = tw.Flush()
}
