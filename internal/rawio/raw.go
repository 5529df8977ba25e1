package rawio

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"pottsfit/internal/model"
)

// RawFormat tags the raw potential container consumed by external readers.
const RawFormat = "ccm-1"

type rawPairBlock struct {
	I int       `msgpack:"i"`
	J int       `msgpack:"j"`
	X []float64 `msgpack:"x"`
}

// rawFile persists v and w for warm starts and skip-optimization runs.
// x_single holds L x 20 amino-acid potentials row-major (the gap column is
// gauge-fixed to zero); x_pair holds one 21x21 block per i<j pair keyed
// "i/j".
type rawFile struct {
	Format  string                  `msgpack:"format"`
	NCol    int                     `msgpack:"ncol"`
	XSingle []float64               `msgpack:"x_single"`
	XPair   map[string]rawPairBlock `msgpack:"x_pair"`
	Meta    map[string]any          `msgpack:"meta"`
}

func WriteRaw(target any, x *model.Potentials, meta map[string]any) error {
	sink, err := NewSink(target)
	if err != nil {
		return err
	}
	defer func() {
		_ = sink.Close()
	}()

	ncol := x.NCol
	raw := rawFile{
		Format:  RawFormat,
		NCol:    ncol,
		XSingle: make([]float64, 0, ncol*model.NumAmino),
		XPair:   make(map[string]rawPairBlock, ncol*(ncol-1)/2),
		Meta:    meta,
	}
	for i := 0; i < ncol; i++ {
		for a := 0; a < model.NumAmino; a++ {
			raw.XSingle = append(raw.XSingle, x.V(i, a))
		}
	}
	for i := 0; i < ncol; i++ {
		for j := i + 1; j < ncol; j++ {
			block := make([]float64, 0, model.NumStates*model.NumStates)
			for a := 0; a < model.NumStates; a++ {
				for b := 0; b < model.NumStates; b++ {
					block = append(block, x.W(i, j, a, b))
				}
			}
			raw.XPair[fmt.Sprintf("%d/%d", i, j)] = rawPairBlock{I: i, J: j, X: block}
		}
	}

	payload, err := msgpack.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw potentials: %w", err)
	}
	if _, err := sink.Write(payload); err != nil {
		return fmt.Errorf("write raw potentials: %w", err)
	}
	return sink.Close()
}

func ReadRaw(target any) (*model.Potentials, error) {
	src, err := NewSource(target)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()

	var raw rawFile
	dec := msgpack.NewDecoder(src)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode raw potentials: %w", err)
	}
	if raw.Format != RawFormat {
		return nil, fmt.Errorf("unsupported raw potential format: %s", raw.Format)
	}
	if raw.NCol <= 0 {
		return nil, fmt.Errorf("raw potential file has invalid ncol %d", raw.NCol)
	}
	if len(raw.XSingle) != raw.NCol*model.NumAmino {
		return nil, fmt.Errorf("raw x_single has %d entries, want %d", len(raw.XSingle), raw.NCol*model.NumAmino)
	}

	x := model.NewPotentials(raw.NCol)
	for i := 0; i < raw.NCol; i++ {
		for a := 0; a < model.NumAmino; a++ {
			x.SetV(i, a, raw.XSingle[i*model.NumAmino+a])
		}
	}
	for key, block := range raw.XPair {
		if block.I < 0 || block.J <= block.I || block.J >= raw.NCol {
			return nil, fmt.Errorf("raw x_pair block %s has invalid indices", key)
		}
		if len(block.X) != model.NumStates*model.NumStates {
			return nil, fmt.Errorf("raw x_pair block %s has %d entries, want %d", key, len(block.X), model.NumStates*model.NumStates)
		}
		for a := 0; a < model.NumStates; a++ {
			for b := 0; b < model.NumStates; b++ {
				x.SetW(block.I, block.J, a, b, block.X[a*model.NumStates+b])
			}
		}
	}
	return x, nil
}
