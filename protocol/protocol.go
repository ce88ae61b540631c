// Package protocol implements the pipe-delimited text protocol spoken over
// any transport: COMMAND|replyAddr|field2|field3|... requests and
// KIND|text responses. It is pure parsing; no I/O happens here.
package protocol

import (
	"chat-hall/domain"
	"chat-hall/errors"
	"strings"

	"github.com/google/uuid"
)

// ParseCommand turns one raw request line into a Job. A wrong field count
// or unknown keyword yields ErrMalformedCommand; the returned Job still
// carries the reply address when one was present so the dispatcher can
// answer the sender.
func ParseCommand(line string) (domain.Job, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return malformed(domain.Job{}), errors.ErrMalformedCommand
	}

	job := domain.Job{
		ID:        uuid.New(),
		Kind:      domain.Kind(parts[0]),
		ReplyAddr: parts[1],
	}

	switch job.Kind {
	case domain.KindRegister, domain.KindList, domain.KindWho,
		domain.KindLeave, domain.KindExit, domain.KindPing:
		if len(parts) < 3 {
			return malformed(job), errors.ErrMalformedCommand
		}
		job.User = parts[2]

	case domain.KindCreate, domain.KindJoin:
		if len(parts) < 4 {
			return malformed(job), errors.ErrMalformedCommand
		}
		job.Room = parts[2]
		job.User = parts[3]

	case domain.KindChat:
		if len(parts) < 5 {
			return malformed(job), errors.ErrMalformedCommand
		}
		job.Room = parts[2]
		job.User = parts[3]
		job.Text = strings.Join(parts[4:], "|")

	case domain.KindDM:
		if len(parts) < 5 {
			return malformed(job), errors.ErrMalformedCommand
		}
		job.Target = parts[2]
		job.User = parts[3]
		job.Text = strings.Join(parts[4:], "|")

	case domain.KindMembers:
		// MEMBERS|replyAddr only

	default:
		return malformed(job), errors.ErrMalformedCommand
	}

	return job, nil
}

func malformed(job domain.Job) domain.Job {
	job.Kind = domain.KindUnknown
	return job
}

// EncodeResponse renders a response into its wire form.
func EncodeResponse(resp domain.Response) string {
	return string(resp.Kind) + "|" + resp.Text
}

// DecodeResponse parses a wire line back into a response. Used by clients
// and tests.
func DecodeResponse(line string) domain.Response {
	kind, text, found := strings.Cut(line, "|")
	if !found {
		return domain.Response{Kind: domain.RespSystem, Text: line}
	}
	return domain.Response{Kind: domain.ResponseKind(kind), Text: text}
}
