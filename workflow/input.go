package workflow

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// readLine prints prompt and reads one trimmed line. A final line without a
// newline is returned as is; EOF on an empty line is returned as io.EOF.
func (c *Controller) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readCount keeps asking until a positive integer is entered.
func (c *Controller) readCount(ctx context.Context, prompt string) (int, error) {
	for {
		s, err := c.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintln(c.out, "Invalid input, enter a number!")
			continue
		}
		if n <= 0 {
			fmt.Fprintln(c.out, "Count must be greater than 0!")
			continue
		}
		return n, nil
	}
}

func (c *Controller) waitEnter(ctx context.Context, prompt string) error {
	_, err := c.readLine(ctx, "\n"+prompt)
	return err
}

func (c *Controller) banner(title string) {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(c.out, line)
	fmt.Fprintf(c.out, "  %s\n", title)
	fmt.Fprintln(c.out, line)
}
