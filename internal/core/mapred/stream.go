package mapred

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// SplitLine splits a streaming line at the first tab
// a line without a tab is all key with an empty value
func SplitLine(line string) KeyValue {
	line = strings.TrimRight(line, "\r\n")
	k, v, _ := strings.Cut(line, "\t")
	return KeyValue{Key: k, Value: v}
}

// ReadLine reads one newline terminated line of any length
// it returns io.EOF only when nothing was read
func ReadLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		return line, nil
	}
	return line, err
}

// GroupSorted reads key sorted key\tvalue lines and calls fn once per run of equal keys
// this mirrors how streaming frameworks feed a reduce task
func GroupSorted(r io.Reader, fn func(key string, values []string) error) error {
	br := bufio.NewReaderSize(r, 1<<20)
	var (
		cur    string
		values []string
		open   bool
	)
	for {
		line, err := ReadLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimRight(line, "\r\n") == "" {
			continue
		}
		kv := SplitLine(line)
		if open && kv.Key != cur {
			if err := fn(cur, values); err != nil {
				return err
			}
			values = nil
		}
		cur, open = kv.Key, true
		values = append(values, kv.Value)
	}
	if open {
		return fn(cur, values)
	}
	return nil
}
