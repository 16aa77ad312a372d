// Command atmsim is an interactive ISO-8583 test client for the ATM
// gateway: it builds requests with github.com/moov-io/iso8583 (an
// independent codec from the gateway's own, so a round trip here exercises
// real wire compatibility rather than a single codec talking to itself),
// sends them over the same 2-byte length-prefixed TCP framing the gateway
// speaks, and prints the parsed response.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moov-io/iso8583"
	"github.com/moov-io/iso8583/encoding"
	"github.com/moov-io/iso8583/field"
	"github.com/moov-io/iso8583/prefix"
)

var serverAddr = flag.String("server", "127.0.0.1:7790", "ATM gateway address")

func messageSpec() *iso8583.MessageSpec {
	return &iso8583.MessageSpec{
		Name: "Pride ATM Acquirer Gateway",
		Fields: map[int]field.Field{
			2:   field.NewString(field.NewSpec(19, "Primary Account Number", encoding.ASCII, prefix.ASCII.LL)),
			3:   field.NewString(field.NewSpec(6, "Processing Code", encoding.ASCII, prefix.ASCII.Fixed)),
			4:   field.NewString(field.NewSpec(12, "Amount, Transaction", encoding.ASCII, prefix.ASCII.Fixed)),
			7:   field.NewString(field.NewSpec(10, "Transmission Date and Time", encoding.ASCII, prefix.ASCII.Fixed)),
			11:  field.NewString(field.NewSpec(6, "System Trace Audit Number", encoding.ASCII, prefix.ASCII.Fixed)),
			32:  field.NewString(field.NewSpec(11, "Acquiring Institution Id", encoding.ASCII, prefix.ASCII.LL)),
			37:  field.NewString(field.NewSpec(12, "Retrieval Reference Number", encoding.ASCII, prefix.ASCII.Fixed)),
			38:  field.NewString(field.NewSpec(6, "Authorization Code", encoding.ASCII, prefix.ASCII.Fixed)),
			39:  field.NewString(field.NewSpec(2, "Response Code", encoding.ASCII, prefix.ASCII.Fixed)),
			41:  field.NewString(field.NewSpec(8, "Terminal Id", encoding.ASCII, prefix.ASCII.Fixed)),
			44:  field.NewString(field.NewSpec(25, "Additional Response Data", encoding.ASCII, prefix.ASCII.LL)),
			48:  field.NewString(field.NewSpec(999, "Additional Data", encoding.ASCII, prefix.ASCII.LLL)),
			49:  field.NewString(field.NewSpec(3, "Transaction Currency Code", encoding.ASCII, prefix.ASCII.Fixed)),
			54:  field.NewString(field.NewSpec(120, "Additional Amounts", encoding.ASCII, prefix.ASCII.LLL)),
			62:  field.NewString(field.NewSpec(999, "Mini Statement", encoding.ASCII, prefix.ASCII.LLL)),
			102: field.NewString(field.NewSpec(28, "Account Identification 1", encoding.ASCII, prefix.ASCII.LL)),
			103: field.NewString(field.NewSpec(28, "Account Identification 2", encoding.ASCII, prefix.ASCII.LL)),
		},
	}
}

type simClient struct {
	addr string
	conn net.Conn
	spec *iso8583.MessageSpec
}

func newSimClient(addr string) *simClient {
	return &simClient{addr: addr, spec: messageSpec()}
}

func (c *simClient) connect() error {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.addr, err)
	}
	c.conn = conn
	return nil
}

func (c *simClient) close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *simClient) send(mti string, fields map[int]string) (*iso8583.Message, error) {
	msg := iso8583.NewMessage(c.spec)
	if err := msg.Field(0, mti); err != nil {
		return nil, fmt.Errorf("set MTI: %w", err)
	}
	for n, v := range fields {
		if err := msg.Field(n, v); err != nil {
			return nil, fmt.Errorf("set field %d: %w", n, err)
		}
	}

	packed, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack message: %w", err)
	}

	length := len(packed)
	frame := append([]byte{byte(length / 256), byte(length % 256)}, packed...)

	start := time.Now()
	if _, err := c.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	resp, err := c.readResponse()
	if err != nil {
		return nil, err
	}
	fmt.Printf("round trip: %s\n", time.Since(start))
	return resp, nil
}

func (c *simClient) readResponse() (*iso8583.Message, error) {
	reader := bufio.NewReader(c.conn)
	lengthBytes := make([]byte, 2)
	if _, err := io.ReadFull(reader, lengthBytes); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	length := int(lengthBytes[0])*256 + int(lengthBytes[1])

	body := make([]byte, length)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}

	resp := iso8583.NewMessage(c.spec)
	if err := resp.Unpack(body); err != nil {
		return nil, fmt.Errorf("unpack response: %w", err)
	}
	return resp, nil
}

func printResponse(msg *iso8583.Message) {
	mti, _ := msg.GetString(0)
	fmt.Println("=== response ===")
	fmt.Printf("MTI: %s\n", mti)
	for _, n := range []int{11, 37, 38, 39, 44, 48, 54, 62} {
		if v, err := msg.GetString(n); err == nil && v != "" {
			fmt.Printf("field %d: %s\n", n, v)
		}
	}
	fmt.Println("================")
}

func stan() string {
	return fmt.Sprintf("%06d", time.Now().UnixNano()/1000%1000000)
}

func transmissionTime() string {
	return time.Now().UTC().Format("0102150405")
}

func main() {
	flag.Parse()

	c := newSimClient(*serverAddr)
	if err := c.connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.close()

	fmt.Println("connected to", *serverAddr)
	fmt.Println("commands: withdraw <pan> <amount>, deposit <pan> <amount>, balance <pan>, ministatement <pan>, echo, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := parts[0]

		if cmd == "quit" || cmd == "exit" {
			return
		}

		resp, err := dispatch(c, cmd, parts[1:])
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		printResponse(resp)
	}
}

func dispatch(c *simClient, cmd string, args []string) (*iso8583.Message, error) {
	switch cmd {
	case "withdraw", "deposit":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: %s <pan> <amount>", cmd)
		}
		processingCode := "010000"
		if cmd == "deposit" {
			processingCode = "020000"
		}
		return c.send("0200", financialFields(args[0], args[1], processingCode))
	case "balance":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: balance <pan>")
		}
		return c.send("0200", financialFields(args[0], "0", "310000"))
	case "ministatement":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: ministatement <pan>")
		}
		return c.send("0200", financialFields(args[0], "0", "380000"))
	case "echo":
		return c.send("0800", map[int]string{11: stan()})
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func financialFields(pan, amount, processingCode string) map[int]string {
	amountFloat, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		amountFloat = 0
	}
	return map[int]string{
		2:  pan,
		3:  processingCode,
		4:  fmt.Sprintf("%012d", int64(amountFloat*100)),
		7:  transmissionTime(),
		11: stan(),
		41: "ATM00001",
		49: "800",
	}
}
