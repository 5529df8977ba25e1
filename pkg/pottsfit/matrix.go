package pottsfit

import (
	"bufio"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"pottsfit/internal/rawio"
)

// writeMatrix writes the score matrix as tab-separated rows, gzipped when
// the path ends in .gz.
func writeMatrix(target any, m *mat.Dense) error {
	sink, err := rawio.NewSink(target)
	if err != nil {
		return err
	}
	defer func() {
		_ = sink.Close()
	}()

	w := bufio.NewWriter(sink)
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j > 0 {
				if err := w.WriteByte('\t'); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%.10e", m.At(i, j)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return sink.Close()
}
