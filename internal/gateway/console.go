package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Console is the local transport: each stdin line is treated as a
// transcribed utterance, responses go to stdout. Confirmation is a y/n
// prompt on the same streams.
type Console struct {
	Pipeline Handler
	In       io.Reader
	Out      io.Writer
}

func NewConsole(pipeline Handler) *Console {
	return &Console{
		Pipeline: pipeline,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
}

func (c *Console) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(c.In)
	fmt.Fprintln(c.Out, "Astra is listening. Type a request, or 'exit' to quit.")

	for {
		fmt.Fprint(c.Out, "you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}

		response := c.Pipeline.Handle(ctx, line, c.confirm(scanner))
		fmt.Fprintf(c.Out, "astra> %s\n", response)
	}
}

func (c *Console) confirm(scanner *bufio.Scanner) func(ctx context.Context, prompt string) (bool, error) {
	return func(ctx context.Context, prompt string) (bool, error) {
		fmt.Fprintf(c.Out, "astra> %s [y/N] ", prompt)
		if !scanner.Scan() {
			return false, scanner.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}
}

func (c *Console) Send(chatID string, text string) error {
	_, err := fmt.Fprintf(c.Out, "astra> %s\n", text)
	return err
}

func (c *Console) Stop() error {
	return nil
}
