package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/source"
)

// Sentinels stored in ExtractedStep.ControlCardContent when no real content
// is available. They are report values, not errors.
const (
	ControlCardUnspecified = "[No CNTLLIB path or member specified]"
	ControlCardEmpty       = "[Control card file exists but is empty]"
)

func ControlCardNotFound(member string) string {
	return fmt.Sprintf("[Control card '%s' not found in CNTLLIB]", member)
}

// IsControlCardSentinel reports whether content is one of the placeholders
// above rather than member text.
func IsControlCardSentinel(content string) bool {
	return content == ControlCardUnspecified || content == ControlCardEmpty ||
		(strings.HasPrefix(content, "[Control card '") && strings.HasSuffix(content, "' not found in CNTLLIB]")) ||
		strings.HasPrefix(content, "[Error reading control card: ")
}

// ControlCard returns the text of <cntlLib>/<member>.incl, or a sentinel.
func ControlCard(cntlLib, member string) string {
	if cntlLib == "" || member == "" {
		return ControlCardUnspecified
	}
	p := filepath.Join(cntlLib, member+memberExt)
	text, err := source.ReadText(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ControlCardNotFound(member)
	case err != nil:
		slog.Error("control card read failed", "member", member, "err", err)
		return fmt.Sprintf("[Error reading control card: %v]", err)
	case strings.TrimSpace(text) == "":
		return ControlCardEmpty
	}
	return text
}
