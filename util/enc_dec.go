package util

import (
	"encoding/json"
)

type EncoderDecoder[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

type JsonEncDec[T any] struct {
	indent string
}

var _ EncoderDecoder[any] = new(JsonEncDec[any])

func NewJsonEncoderDecoder[T any]() *JsonEncDec[T] {
	return &JsonEncDec[T]{}
}

// NewIndentedJsonEncoderDecoder encodes human readable documents, used for files on disk.
func NewIndentedJsonEncoderDecoder[T any](indent string) *JsonEncDec[T] {
	return &JsonEncDec[T]{indent: indent}
}

func (encdec *JsonEncDec[T]) Encode(value T) ([]byte, error) {
	if encdec.indent != "" {
		return json.MarshalIndent(value, "", encdec.indent)
	}
	return json.Marshal(value)
}

func (encdec *JsonEncDec[T]) Decode(data []byte) (*T, error) {
	var res T
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
