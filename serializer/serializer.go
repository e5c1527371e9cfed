package serializer

// Serializer turns call arguments and results into the opaque bytes the
// channel moves around. The client never looks inside the payload.
type Serializer interface {
	Marshal(msg interface{}) ([]byte, error)
	Unmarshal(data []byte, msg interface{}) error
}
