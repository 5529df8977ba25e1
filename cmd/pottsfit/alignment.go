package main

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"pottsfit/internal/model"
)

// alphabet is the column order of the 20 amino states; everything else,
// including '-' and '.', encodes as the gap state.
const alphabet = "ARNDCQEGHILKMFPSTWYV"

var letterToState = buildLetterTable()

func buildLetterTable() [256]uint8 {
	var table [256]uint8
	for i := range table {
		table[i] = model.GapState
	}
	for idx, letter := range alphabet {
		table[letter] = uint8(idx)
		table[letter+'a'-'A'] = uint8(idx)
	}
	return table
}

func readAlignment(path, format string) (model.Alignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Alignment{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return model.Alignment{}, err
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}

	switch format {
	case "psicov":
		return readPsicov(r)
	case "fasta":
		return readFasta(r)
	default:
		return model.Alignment{}, fmt.Errorf("unsupported alignment format: %s", format)
	}
}

// readPsicov reads one aligned sequence per line.
func readPsicov(r io.Reader) (model.Alignment, error) {
	var aln model.Alignment
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		aln.Seqs = append(aln.Seqs, encodeSequence(line))
	}
	if err := sc.Err(); err != nil {
		return model.Alignment{}, err
	}
	return aln, aln.Validate()
}

func readFasta(r io.Reader) (model.Alignment, error) {
	var aln model.Alignment
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			aln.Seqs = append(aln.Seqs, encodeSequence(current.String()))
			current.Reset()
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			continue
		}
		current.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return model.Alignment{}, err
	}
	flush()
	return aln, aln.Validate()
}

func encodeSequence(s string) []uint8 {
	seq := make([]uint8, len(s))
	for i := 0; i < len(s); i++ {
		seq[i] = letterToState[s[i]]
	}
	return seq
}
