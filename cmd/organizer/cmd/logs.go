package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// LogsCommand prints the tail of the structured log every run appends to,
// independent of the journal (which records only mutating transactions).
func LogsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Show recent structured log lines from the most recent runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "lines",
				Usage: "Number of trailing lines to show",
				Value: 100,
			},
		},
		Action: logsAction,
	}
}

func logsAction(c *cli.Context) error {
	path, err := defaultLogPath()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no logs recorded yet")
			return nil
		}
		return cli.Exit(err.Error(), 1)
	}
	defer f.Close()

	limit := c.Int("lines")
	lines := make([]string, 0, limit)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
