// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/catalogsearch/ingestion"
	"github.com/schollz/progressbar/v3"
)

// progressMonitor renders ingestion progress as a terminal bar.
type progressMonitor struct {
	out    io.Writer
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

func newProgressMonitor(out io.Writer) *progressMonitor {
	return &progressMonitor{out: out}
}

func (m *progressMonitor) IngestStarted(rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed = 0
	m.bar = progressbar.NewOptions(rows,
		progressbar.OptionSetWriter(m.out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(m.out)
		}),
	)
}

func (m *progressMonitor) RowCompleted(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failed++
		m.bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] [red]%d failed[reset]", m.failed))
	}
	_ = m.bar.Add(1)
}

func (m *progressMonitor) IngestFinished(*ingestion.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bar != nil {
		_ = m.bar.Finish()
	}
}
