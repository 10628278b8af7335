package inspector

import "github.com/mark3labs/mcp-go/mcp"

// ClientName and ClientVersion identify this process to the servers it inspects.
const (
	ClientName    = "mcpc"
	ClientVersion = "1.0.0"
)

// ServerInfo is what a server reported during initialize.
type ServerInfo struct {
	Name            string     `json:"name"`
	Version         string     `json:"version"`
	ProtocolVersion string     `json:"protocolVersion"`
	Tools           []mcp.Tool `json:"tools"`
}
