package game

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ResetPrompt is shown before a reset.
const ResetPrompt = "Type 'yes' to reset the game state"

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Answer confirms when the given answer is exactly "yes".
func Answer(answer string) Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) {
		return answer == "yes", nil
	})
}

// Prompt writes the question to w and reads one line from r.
func Prompt(r io.Reader, w io.Writer) Confirmer {
	return ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		if _, err := fmt.Fprintf(w, "%s: ", prompt); err != nil {
			return false, err
		}
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		return strings.TrimSpace(line) == "yes", nil
	})
}
