package ai

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// errStopEvents ends readEvents without an error.
var errStopEvents = errors.New("stop events")

// readEvents splits an event stream into the data of each event. Multi-line
// data is joined with "\n"; comment and event-name lines are ignored.
func readEvents(r io.Reader, onData func(data string) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var dataLines []string

	dispatch := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		data := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		return onData(data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if derr := dispatch(); derr != nil {
				return stopped(derr)
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}

		if eof {
			return stopped(dispatch())
		}
	}
}

func stopped(err error) error {
	if errors.Is(err, errStopEvents) {
		return nil
	}
	return err
}
