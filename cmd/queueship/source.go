package main

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/bft-labs/queueship/internal/cliconfig"
	"github.com/bft-labs/queueship/pkg/queueship"
)

const attrPacketNumber = "packetNumber"

// source produces packets until it is exhausted or ctx is canceled.
type source interface {
	run(ctx context.Context, emit func(queueship.DataPacket)) error
}

func newSource(cfg cliconfig.Config, stdin io.Reader) source {
	if cfg.Stdin {
		return lineSource{r: stdin}
	}
	return generator{rate: cfg.Rate, count: cfg.Count}
}

// generator emits one synthetic packet per rate tick.
type generator struct {
	rate  time.Duration
	count int
}

func (g generator) run(ctx context.Context, emit func(queueship.DataPacket)) error {
	ticker := time.NewTicker(g.rate)
	defer ticker.Stop()

	for n := 0; g.count <= 0 || n < g.count; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		emit(queueship.NewDataPacket(
			map[string]string{attrPacketNumber: strconv.Itoa(n)},
			[]byte("This is the content of the data packet"),
		))
	}
	return nil
}

// lineSource emits one packet per non-empty input line.
type lineSource struct {
	r io.Reader
}

func (s lineSource) run(ctx context.Context, emit func(queueship.DataPacket)) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		payload := append([]byte(nil), line...)
		emit(queueship.NewDataPacket(map[string]string{attrPacketNumber: strconv.Itoa(n)}, payload))
		n++
	}
	return scanner.Err()
}
