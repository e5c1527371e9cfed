package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emicklei/proto"
)

type Parser struct {
	Pkg            string
	CurrentService string
	Services       map[string]*service
	// map<messageName, *proto.Message>
	MessagesStor map[string]*proto.Message
	Filepath     string
}

func NewParser(protoFilePath string) *Parser {
	return &Parser{
		MessagesStor: map[string]*proto.Message{},
		Services:     map[string]*service{},
		Filepath:     protoFilePath,
	}
}

func (g *Parser) handleImport(p *proto.Import) {
	dir := filepath.Dir(g.Filepath)
	path := filepath.Join(dir, p.Filename)
	r, err := os.Open(path)
	if err != nil {
		Log.Error(err)
		os.Exit(1)
	}
	defer r.Close()
	parser := proto.NewParser(r)
	definition, err := parser.Parse()
	if err != nil {
		panic(fmt.Errorf("parser error: %w", err))
	}
	proto.Walk(definition,
		proto.WithMessage(g.handleMessage),
	)
}

func (g *Parser) handlePackage(p *proto.Package) {
	g.Pkg = p.Name
}

func (g *Parser) handleService(s *proto.Service) {
	g.Services[s.Name] = &service{
		Rpc: []rpc{},
	}
	g.CurrentService = s.Name
}

func (g *Parser) handleRPC(prpc *proto.RPC) {
	if prpc.StreamsRequest {
		Log.Fatalf("client streaming is not supported: %s.%s", g.CurrentService, prpc.Name)
	}
	if _, ok := g.MessagesStor[prpc.RequestType]; !ok {
		Log.Fatalf("unknown request message %q for rpc %s.%s", prpc.RequestType, g.CurrentService, prpc.Name)
	}
	if _, ok := g.MessagesStor[prpc.ReturnsType]; !ok {
		Log.Fatalf("unknown response message %q for rpc %s.%s", prpc.ReturnsType, g.CurrentService, prpc.Name)
	}

	myRpc := rpc{
		Name:     prpc.Name,
		Request:  prpc.RequestType,
		Response: prpc.ReturnsType,
		Stream:   prpc.StreamsReturns,
	}

	if prpc.Comment != nil && len(prpc.Comment.Lines) > 0 {
		myRpc.Comments = make([]string, 0, len(prpc.Comment.Lines))
		myRpc.Comments = append(myRpc.Comments, prpc.Comment.Lines...)
	}

	g.Services[g.CurrentService].Rpc = append(
		g.Services[g.CurrentService].Rpc,
		myRpc,
	)
}

func (g *Parser) handleMessage(m *proto.Message) {
	Log.Debugf("message: %s", m.Name)
	g.MessagesStor[m.Name] = m

	// walk fields to collect sub-messages (only 1 level deep)
	for _, f := range m.Elements {
		if msg, ok := f.(*proto.Message); ok {
			g.MessagesStor[getSubMessageName(m.Name, msg.Name)] = msg
		}
	}
}
