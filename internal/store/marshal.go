package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/bir/internal/ir"
)

// marshalWords converts call arguments to canonical JSON TEXT for storage.
func marshalWords(words []uint64) (string, error) {
	arr := make([]any, len(words))
	for i, w := range words {
		arr[i] = w
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalWords parses canonical JSON TEXT back to words. Numbers are
// decoded via json.Number to avoid float64 precision loss above 2^53.
func unmarshalWords(data string) ([]uint64, error) {
	if data == "" || data == "[]" {
		return []uint64{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var nums []json.Number
	if err := dec.Decode(&nums); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	words := make([]uint64, len(nums))
	for i, n := range nums {
		w, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unmarshal args: element %d: %w", i, err)
		}
		words[i] = w
	}
	return words, nil
}
