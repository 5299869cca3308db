// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// StdinName selects standard input for --file.
const StdinName = "-"

const singleLineBanner = "Enter your prompt on a single line:"

// readFilePrompt returns the whole content of name, or of stdin for "-".
func readFilePrompt(name string, stdin io.Reader) (string, error) {
	if name == StdinName {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", &InputError{Message: "Error reading stdin", Err: err}
		}
		return string(data), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &InputError{Message: fmt.Sprintf("File %s not found.", name)}
		}
		return "", &InputError{Message: fmt.Sprintf("Error reading %s", name), Err: err}
	}
	return string(data), nil
}

// readLinePrompt asks for and reads one line from stdin.
func readLinePrompt(stdin io.Reader, stdout io.Writer) (string, error) {
	fmt.Fprintln(stdout, singleLineBanner)
	fmt.Fprint(stdout, ">")

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", &InputError{Message: "no prompt given on stdin"}
		}
		return "", &InputError{Message: "Error reading stdin", Err: err}
	}
	return strings.TrimRight(line, "\r\n"), nil
}
