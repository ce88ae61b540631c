package domain

// ResponseKind identifies a server-to-client message on the wire.
type ResponseKind string

const (
	RespSystem      ResponseKind = "SYSTEM"
	RespList        ResponseKind = "LIST"
	RespChat        ResponseKind = "CHAT"
	RespJoinSuccess ResponseKind = "JOIN_SUCCESS"
	RespDM          ResponseKind = "DM"
)

// Response is one message bound for a mailbox.
type Response struct {
	Kind ResponseKind
	Text string
}

func System(text string) Response      { return Response{Kind: RespSystem, Text: text} }
func SystemError(text string) Response { return Response{Kind: RespSystem, Text: "Error: " + text} }
func Chat(text string) Response        { return Response{Kind: RespChat, Text: text} }
func List(text string) Response        { return Response{Kind: RespList, Text: text} }
func JoinSuccess(room string) Response { return Response{Kind: RespJoinSuccess, Text: room} }
func DM(text string) Response          { return Response{Kind: RespDM, Text: text} }
