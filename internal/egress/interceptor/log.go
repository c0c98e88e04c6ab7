package interceptor

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// AppendLog writes one line to the nested-launch log per §6: "<iso-
// 8601-timestamp> <verdict> <original-argv>".
func AppendLog(w io.Writer, d Decision, at time.Time) error {
	_, err := fmt.Fprintf(w, "%s %s %s\n", at.UTC().Format(time.RFC3339), d.String(), strings.Join(d.OriginalArgs, " "))
	return err
}
