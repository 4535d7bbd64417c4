package subscription

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	errTruncatedArgs = errors.New("subscription: instruction data truncated")
	errArgsTooLarge  = errors.New("subscription: instruction data too large")
)

// maxEncodedImageLength is the base64 transport size of the longest image URL.
var maxEncodedImageLength = base64.URLEncoding.EncodedLen(MaxURLLength)

// maxCreateCreatorArgsSize is the largest createCreatorAccount payload a
// publishable catalog encodes to, discriminator excluded.
var maxCreateCreatorArgsSize = (4 + MaxNameLength) +
	(4 + MaxPlans*8) +
	(4 + MaxPlans*(4+MaxNameLength)) +
	(4 + MaxPlans*(4+maxEncodedImageLength))

// wireReader reads borsh-encoded instruction arguments. Every length prefix is
// checked against the bytes actually left before anything is allocated.
type wireReader struct {
	buf []byte
	off int
}

func (r *wireReader) remaining() int { return len(r.buf) - r.off }

func (r *wireReader) take(n uint64) ([]byte, error) {
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", errTruncatedArgs, n, r.off, r.remaining())
	}
	out := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return out, nil
}

func (r *wireReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *wireReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *wireReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(uint64(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// count reads a vector length whose elements take at least elemSize bytes.
func (r *wireReader) count(elemSize int) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(elemSize) > uint64(r.remaining()) {
		return 0, fmt.Errorf("%w: vector of %d at offset %d, %d bytes left", errTruncatedArgs, n, r.off, r.remaining())
	}
	return int(n), nil
}

func (r *wireReader) strs() ([]string, error) {
	n, err := r.count(4)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.str(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeCreatorArgs parses createCreatorAccount data. Oversized payloads are
// rejected up front; catalog rules are left to ValidatePlans.
func decodeCreatorArgs(data []byte) (createCreatorArgs, error) {
	var args createCreatorArgs
	if len(data) < discriminatorSize || !bytes.Equal(data[:discriminatorSize], createCreatorAccountDiscriminator[:]) {
		return args, errDiscriminatorMismatch
	}
	body := data[discriminatorSize:]
	if len(body) > maxCreateCreatorArgsSize {
		return args, fmt.Errorf("%w: %d bytes, limit %d", errArgsTooLarge, len(body), maxCreateCreatorArgsSize)
	}
	r := &wireReader{buf: body}
	var err error
	if args.Name, err = r.str(); err != nil {
		return args, err
	}
	n, err := r.count(8)
	if err != nil {
		return args, err
	}
	args.Prices = make([]uint64, n)
	for i := range args.Prices {
		if args.Prices[i], err = r.u64(); err != nil {
			return args, err
		}
	}
	if args.Names, err = r.strs(); err != nil {
		return args, err
	}
	if args.Images, err = r.strs(); err != nil {
		return args, err
	}
	return args, nil
}
