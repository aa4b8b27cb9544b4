// Package main is the entry point of the convert CLI, which runs the
// converter tools on local files.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

var rootCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert, transform and extract text from local images and PDFs",
	Long: `convert runs the converter tools on local files: format conversions,
image to PDF, PDF to images, resize, rotate, crop, watermark, compress,
zip and text extraction.

Use "convert tools" to list the tool ids and "convert run" to execute one.
Press Ctrl+C during a run to stop before the next file; finished results
are kept.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zlog.Init()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
