package atomic

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteXYZ writes the structure in XYZ format. Newlines in comment are
// replaced so the header stays two lines.
func WriteXYZ(w io.Writer, s *Structure, comment string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%s\n", s.NumAtoms(), strings.ReplaceAll(comment, "\n", " "))
	s.Each(func(a *Atom) {
		fmt.Fprintf(bw, "%-2s %14.6f %14.6f %14.6f\n", Symbol(a.Z), a.Position.X, a.Position.Y, a.Position.Z)
	})
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("atomic: write xyz: %w", err)
	}
	return nil
}
