package busmock

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/salbus-protocol/salbus-go/pkg/bus"
)

// frameEncMode is the CBOR encoder mode for payload frames.
var frameEncMode cbor.EncMode

// frameDecMode is the CBOR decoder mode for payload frames. Integers
// decode as int64 regardless of sign so round-tripped fields compare
// predictably.
var frameDecMode cbor.DecMode

func init() {
	var err error

	frameEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create frame CBOR encoder mode: %v", err))
	}

	frameDecMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		IntDec:    cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create frame CBOR decoder mode: %v", err))
	}
}

// encodeFrame serializes a payload's fields into a CBOR frame.
func encodeFrame(p *bus.Payload) ([]byte, error) {
	return frameEncMode.Marshal(p.Fields())
}

// decodeFrame deserializes a CBOR frame into the payload.
func decodeFrame(data []byte, into *bus.Payload) error {
	var fields map[string]any
	if err := frameDecMode.Unmarshal(data, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		if err := into.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
