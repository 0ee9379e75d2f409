// Package codec encodes pool events the way the on-chain program logs them: an 8-byte
// discriminator followed by the borsh-encoded event body.
package codec

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"cpswap/internal/model"
)

const (
	LpChangeEventName = "LpChangeEvent"
	SwapEventName     = "SwapEvent"
)

// DiscriminatorSize is the length of the event prefix.
const DiscriminatorSize = 8

var ErrDiscriminatorMismatch = errors.New("event discriminator mismatch")

// Discriminator is the first 8 bytes of sha256("event:<name>").
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var out [DiscriminatorSize]byte
	copy(out[:], sum[:DiscriminatorSize])
	return out
}

// Encode prefixes the borsh body of event with the discriminator of name.
func Encode(name string, event any) ([]byte, error) {
	body, err := borsh.Serialize(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	disc := Discriminator(name)
	out := make([]byte, 0, DiscriminatorSize+len(body))
	out = append(out, disc[:]...)
	return append(out, body...), nil
}

// Decode checks the discriminator of data against name and decodes the body into event.
func Decode(data []byte, name string, event any) error {
	disc := Discriminator(name)
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], disc[:]) {
		return fmt.Errorf("decode %s: %w", name, ErrDiscriminatorMismatch)
	}
	if err := borsh.Deserialize(event, data[DiscriminatorSize:]); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func EncodeLpChange(event model.LpChangeEvent) ([]byte, error) {
	return Encode(LpChangeEventName, event)
}

func EncodeSwap(event model.SwapEvent) ([]byte, error) {
	return Encode(SwapEventName, event)
}

// DecodePayload decodes a stored event payload into an LpChangeEvent or a SwapEvent.
func DecodePayload(data []byte) (any, error) {
	var lp model.LpChangeEvent
	if err := Decode(data, LpChangeEventName, &lp); err == nil {
		return lp, nil
	} else if !errors.Is(err, ErrDiscriminatorMismatch) {
		return nil, err
	}
	var swap model.SwapEvent
	if err := Decode(data, SwapEventName, &swap); err != nil {
		return nil, err
	}
	return swap, nil
}
