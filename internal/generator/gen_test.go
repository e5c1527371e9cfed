package generator

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testProto = `
syntax = "proto3";
package testapi;

message PingReq {
	string payload = 1;
}

message PingResp {
	string payload = 1;
}

message WatchReq {
	string key = 1;
}

message WatchResp {
	string value = 1;
}

service Example {
	rpc Ping (PingReq) returns (PingResp);
	rpc Watch (WatchReq) returns (stream WatchResp);
}
`

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	protoFile := filepath.Join(dir, "example.proto")
	require.NoError(t, ioutil.WriteFile(protoFile, []byte(testProto), 0644))

	outFile := filepath.Join(dir, "example.proto.rpc.go")
	require.NoError(t, Generate(protoFile, outFile))

	out, err := ioutil.ReadFile(outFile)
	require.NoError(t, err)
	src := string(out)

	require.Contains(t, src, "package testapi")
	require.Contains(t, src, "func NewExampleClient(cfg client.Config) *ExampleClient")
	require.Contains(t, src, "func (c *ExampleClient) Ping(req *PingReq) (*PingResp, status.Status)")
	require.Contains(t, src, "func (c *ExampleClient) PingAsync(req *PingReq) (*client.Reply, error)")
	require.Contains(t, src, "func (c *ExampleClient) SubscribeWatch(req *WatchReq, handler func(resp *WatchResp)) (*client.Stream, error)")
	require.NotContains(t, src, "func (c *ExampleClient) Watch(")
}
