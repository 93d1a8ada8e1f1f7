// =============================================================================
// Export Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   export-converter convert [FILE...]  - Convert export files into templates
//   export-converter watch DIR          - Convert files dropped into DIR
//   export-converter validate           - Validate the configuration file
//   export-converter templates list     - List registered templates
//   export-converter version            - Display the application version
//
// LAYOUT:
//   - cmd/       : CLI commands (Cobra) and application wiring
//   - internal/  : Conversion engine, templates, label translation, output
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/export-converter/cmd"
)

func main() {
	cmd.Execute()
}
