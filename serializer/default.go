package serializer

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// DefaultSerializer marshals protobuf messages. It is what a client uses
// until a channel with its own serializer is attached.
type DefaultSerializer struct {
}

func (d *DefaultSerializer) Marshal(msg interface{}) ([]byte, error) {
	pm, ok := msg.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("serializer: %T is not a proto.Message", msg)
	}
	return proto.Marshal(pm)
}

func (d *DefaultSerializer) Unmarshal(data []byte, msg interface{}) error {
	pm, ok := msg.(proto.Message)
	if !ok {
		return fmt.Errorf("serializer: %T is not a proto.Message", msg)
	}
	return proto.Unmarshal(data, pm)
}
