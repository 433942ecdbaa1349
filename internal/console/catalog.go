package console

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var defaultMessages = map[string]string{
	CodeUnspecifiedPath: "The decompiler path is not set; configure decompiler.path",
	CodePathNotFound:    "The decompiler %s does not exist",
	CodeInvalidPath:     "The decompiler path %s is not a regular file",
	CodeOutputDir:       "Cannot create output directory %s: %v",
	CodeExtract:         "Cannot extract %s from %s: %v",
	CodeLaunch:          "Cannot launch the decompiler (%s): %v",
	CodeProcessExit:     "Decompiling %s failed with exit code %d\n%s",
	CodeNoOutput:        "Decompiling %s produced no output",
	CodeTimeout:         "Decompiling %s timed out after %v",
	CodeWriteOutput:     "Cannot write %s: %v",
	CodePumpIO:          "Error while pumping decompiler %s: %v",
	CodeDecompiling:     "Decompiling %s",
	CodeDecompiled:      "Decompiled %s to %s",
	CodeExcluded:        "Skipping %s: excluded by rule %q",
	CodeCancelled:       "Decompilation of %s cancelled",
	CodeReconfigured:    "Configuration saved to %s",
}

// Catalog renders message codes as English text.
type Catalog struct {
	known   map[string]bool
	printer *message.Printer
}

// NewCatalog returns a catalog holding the built-in messages.
func NewCatalog() *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	known := make(map[string]bool, len(defaultMessages))
	for code, msg := range defaultMessages {
		// SetString only fails for malformed tags; English is always valid.
		_ = b.SetString(language.English, code, msg)
		known[code] = true
	}
	return &Catalog{
		known:   known,
		printer: message.NewPrinter(language.English, message.Catalog(b)),
	}
}

// Render formats an entry. Unknown codes render as the code followed by
// the raw parameters so nothing is lost.
func (c *Catalog) Render(e Entry) string {
	if !c.known[e.Code] {
		if len(e.Params) == 0 {
			return e.Code
		}
		parts := make([]string, len(e.Params))
		for i, p := range e.Params {
			parts[i] = fmt.Sprint(p)
		}
		return e.Code + ": " + strings.Join(parts, ", ")
	}
	return strings.TrimRight(c.printer.Sprintf(e.Code, e.Params...), "\n")
}
