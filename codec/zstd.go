package codec

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Zstd compresses the output of another codec. Large stores of repetitive
// values shrink a lot, which matters because every mutation rewrites the blob.
type Zstd struct {
	inner Codec
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func NewZstd(inner Codec) (*Zstd, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	return &Zstd{inner: inner, enc: enc, dec: dec}, nil
}

func (z *Zstd) Marshal(v any) ([]byte, error) {
	b, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(b, nil), nil
}

func (z *Zstd) Unmarshal(data []byte, v any) error {
	b, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return errors.Wrap(err, "zstd")
	}
	return z.inner.Unmarshal(b, v)
}

func (z *Zstd) Name() string { return z.inner.Name() + "+zstd" }
