package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"chat-hall/domain"
	"chat-hall/protocol"
)

var roomEntryPattern = regexp.MustCompile(`(\S+)\((\d+)\)`)

type client struct {
	cfg  Config
	name string
	conn net.Conn

	outMu sync.Mutex

	roomMu      sync.Mutex
	currentRoom string

	registered atomic.Bool
	running    atomic.Bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <username>", os.Args[0])
	}
	name := strings.TrimSpace(os.Args[1])
	if name == "" || strings.Contains(name, "|") {
		return fmt.Errorf("invalid username %q", name)
	}

	conn, err := net.DialTimeout("tcp", cfg.ServerAddr, cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.ServerAddr, err)
	}
	defer conn.Close()

	c := &client{cfg: cfg, name: name, conn: conn}
	c.running.Store(true)

	go c.receiveLoop()

	if err := c.send(domain.KindRegister, c.name); err != nil {
		return fmt.Errorf("registering: %w", err)
	}

	// The server confirms registration with its welcome notice.
	deadline := time.Now().Add(5 * time.Second)
	for !c.registered.Load() {
		if !c.running.Load() || time.Now().After(deadline) {
			return fmt.Errorf("registration timeout for %q", c.name)
		}
		time.Sleep(100 * time.Millisecond)
	}

	go c.heartbeatLoop()

	c.printHelp()
	c.inputLoop()
	return nil
}

func (c *client) send(kind domain.Kind, fields ...string) error {
	line := string(kind) + "|" + c.name
	if len(fields) > 0 {
		line += "|" + strings.Join(fields, "|")
	}
	_, err := fmt.Fprintln(c.conn, line)
	if err != nil {
		c.running.Store(false)
	}
	return err
}

func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if !c.running.Load() {
			return
		}
		if err := c.send(domain.KindPing, c.name); err != nil {
			c.printf(color.FgRed, "\n[CLIENT] Server connection lost. Shutting down...\n")
			return
		}
	}
}

func (c *client) receiveLoop() {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		resp := protocol.DecodeResponse(scanner.Text())
		c.handleResponse(resp.Kind, resp.Text)
		if !c.running.Load() {
			return
		}
	}
	c.running.Store(false)
}

func (c *client) handleResponse(kind domain.ResponseKind, message string) {
	switch kind {
	case domain.RespSystem:
		c.printf(color.FgYellow, "\n[SYSTEM] %s\n", message)
		switch {
		case strings.Contains(message, "Welcome"):
			c.registered.Store(true)
		case strings.Contains(message, "disconnected"), strings.Contains(message, "Goodbye"):
			c.running.Store(false)
		}
	case domain.RespList:
		c.printRooms(message)
	case domain.RespChat:
		c.printf(color.FgCyan, "\n[%s] %s\n", c.room(), message)
	case domain.RespDM:
		c.printf(color.FgMagenta, "\n[DM] %s\n", message)
	case domain.RespJoinSuccess:
		c.setRoom(message)
		if message == "" {
			c.printf(color.FgYellow, "\n[SYSTEM] Returned to Lobby.\n")
		} else {
			c.printf(color.FgGreen, "\n[SYSTEM] Successfully joined room '%s'.\n", message)
		}
	default:
		c.printf(color.FgDefault, "\n[RAW] %s|%s\n", kind, message)
	}
	c.showPrompt()
}

// printRooms renders the room listing as a small table instead of the raw
// space separated payload.
func (c *client) printRooms(message string) {
	matches := roomEntryPattern.FindAllStringSubmatch(message, -1)
	if len(matches) == 0 {
		c.printf(color.FgYellow, "\n[ROOMS] %s\n", message)
		return
	}

	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Members"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, m := range matches {
		table.Append([]string{m[1], m[2]})
	}
	table.Render()
}

func (c *client) inputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for c.running.Load() {
		c.showPrompt()
		if !scanner.Scan() {
			c.send(domain.KindExit, c.name)
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || !c.running.Load() {
			continue
		}

		if strings.HasPrefix(input, "/") {
			c.handleCommand(input)
			continue
		}

		room := c.room()
		if room == "" {
			c.printf(color.FgRed, "[ERROR] You must be in a room to chat. Use /create or /join.\n")
			continue
		}
		c.send(domain.KindChat, room, c.name, input)
	}
}

func (c *client) handleCommand(input string) {
	fields := strings.Fields(input)
	cmd := fields[0]
	switch cmd {
	case "/exit":
		c.send(domain.KindExit, c.name)
		c.running.Store(false)
	case "/list":
		c.send(domain.KindList, c.name)
	case "/members":
		c.send(domain.KindMembers)
	case "/who":
		if c.room() == "" {
			c.printf(color.FgRed, "[ERROR] You must be in a room to use /who.\n")
			return
		}
		c.send(domain.KindWho, c.name)
	case "/leave":
		if c.room() == "" {
			c.printf(color.FgRed, "[ERROR] You are already in the Lobby.\n")
			return
		}
		c.send(domain.KindLeave, c.name)
	case "/create", "/join":
		if len(fields) < 2 {
			c.printf(color.FgRed, "[ERROR] Usage: %s <room_name>\n", cmd)
			return
		}
		kind := domain.KindCreate
		if cmd == "/join" {
			kind = domain.KindJoin
		}
		c.send(kind, fields[1], c.name)
	case "/dm":
		if len(fields) < 3 {
			c.printf(color.FgRed, "[ERROR] Usage: /dm <name> <message>\n")
			return
		}
		message := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(input, cmd), " "+fields[1]))
		c.send(domain.KindDM, fields[1], c.name, message)
	default:
		c.printf(color.FgRed, "[ERROR] Unknown command: %s\n", cmd)
	}
}

func (c *client) printHelp() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Println("\n--- Commands ---")
	fmt.Println(" /list          - Show all Rooms and member counts")
	fmt.Println(" /create <room> - Create and join room")
	fmt.Println(" /join <room>   - Join Room")
	fmt.Println(" /leave         - Leave current room and return to Lobby")
	fmt.Println(" /who           - Show users in current room")
	fmt.Println(" /dm <name> <msg> - Send Direct Message")
	fmt.Println(" /members       - Show all online users")
	fmt.Println(" /exit          - Disconnect and Quit")
	fmt.Println(" (Type message to chat in room)")
	fmt.Println("----------------")
}

func (c *client) showPrompt() {
	room := c.room()
	if room == "" {
		room = "Lobby"
	}
	c.outMu.Lock()
	defer c.outMu.Unlock()
	prompt := fmt.Sprintf("[%s@%s]> ", c.name, room)
	if c.cfg.Colours {
		prompt = color.New(color.FgGreen).Render(prompt)
	}
	fmt.Print(prompt)
}

func (c *client) printf(fg color.Color, format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	text := fmt.Sprintf(format, args...)
	if c.cfg.Colours {
		text = color.New(fg).Render(text)
	}
	fmt.Print(text)
}

func (c *client) room() string {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	return c.currentRoom
}

func (c *client) setRoom(room string) {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	c.currentRoom = room
}
