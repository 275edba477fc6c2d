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

package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/poiesic/catalogsearch/core"
)

const (
	msgGreeting    = "Hi! I'm your product search assistant. How can I help you today?"
	msgPrompt      = "What are you looking for? "
	msgResults     = "Here are some products that might interest you:"
	msgMore        = "Would you like to know more about any of these products? (Enter a number or 'no')"
	msgNoResults   = "No products found matching your query. Try searching with different keywords."
	msgUnavailable = "Search is unavailable right now, please try again."
	msgInvalid     = "Invalid choice. Please try again."
	msgDecline     = "No problem, happy shopping!"
	msgNotFound    = "Product not found."
	msgGoodbye     = "Goodbye!"
)

// Searcher is the part of search.Service the shell drives.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]core.ProductSummary, error)
	Describe(ctx context.Context, id string) (core.ProductRecord, error)
}

type styles struct {
	title  lipgloss.Style
	muted  lipgloss.Style
	rank   lipgloss.Style
	detail lipgloss.Style
	err    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title:  r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
		rank:   r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		detail: r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		err:    r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Shell runs the read-search-print loop.
type Shell struct {
	searcher Searcher
	in       *bufio.Scanner
	out      io.Writer
	topK     int
	styles   styles
	logger   *slog.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithTopK sets how many results each query shows.
// Default is core.DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Shell) {
		if k > 0 {
			s.topK = k
		}
	}
}

// New creates a shell reading from in and writing to out.
func New(searcher Searcher, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		searcher: searcher,
		in:       bufio.NewScanner(in),
		out:      out,
		topK:     core.DefaultTopK,
		styles:   newStyles(out),
		logger:   slog.Default().With("component", "shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until "exit", end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.println(s.styles.title.Render(msgGreeting))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.out, msgPrompt)
		line, ok := s.readLine()
		if !ok {
			s.println("")
			return s.in.Err()
		}

		query := strings.TrimSpace(line)
		if strings.EqualFold(query, "exit") {
			s.println(msgGoodbye)
			return nil
		}
		if query == "" {
			continue
		}

		if err := s.handleQuery(ctx, query); err != nil {
			return err
		}
	}
}

func (s *Shell) handleQuery(ctx context.Context, query string) error {
	results, err := s.searcher.Search(ctx, query, s.topK)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.logger.Debug("query failed", "query", query, "err", err)
		s.println(s.styles.err.Render(msgUnavailable))
		return nil
	}
	if len(results) == 0 {
		s.println(msgNoResults)
		return nil
	}

	s.println(msgResults)
	for i, r := range results {
		s.println(s.formatSummary(i+1, r))
	}

	s.println(msgMore)
	choice, ok := s.readLine()
	if !ok {
		return s.in.Err()
	}
	s.handleChoice(ctx, strings.TrimSpace(choice), results)
	return nil
}

func (s *Shell) handleChoice(ctx context.Context, choice string, results []core.ProductSummary) {
	n, err := strconv.Atoi(choice)
	if err != nil {
		s.println(msgDecline)
		return
	}
	if n < 1 || n > len(results) {
		s.println(msgInvalid)
		return
	}

	record, err := s.searcher.Describe(ctx, results[n-1].ProductID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("describe failed", "id", results[n-1].ProductID, "err", err)
		}
		s.println(msgNotFound)
		return
	}
	s.println(s.formatDetail(record))
}

func (s *Shell) formatSummary(rank int, r core.ProductSummary) string {
	var b strings.Builder
	b.WriteString(s.styles.rank.Render(fmt.Sprintf("%d.", rank)))
	b.WriteString(" ")
	b.WriteString(orDash(r.ProductName))
	if r.Category != "" {
		b.WriteString(s.styles.muted.Render(" [" + r.Category + "]"))
	}
	if price := firstNonEmpty(r.SellingPrice, r.ListPrice); price != "" {
		b.WriteString(" " + price)
	}
	b.WriteString(s.styles.muted.Render(fmt.Sprintf(" (score %.3f)", r.Score)))
	return b.String()
}

func (s *Shell) formatDetail(r core.ProductRecord) string {
	lines := []string{
		s.styles.title.Render(fmt.Sprintf("Here's more information about the %s:", orDash(r.ProductName))),
		"Brand: " + orDash(r.BrandName),
		"Price: " + orDash(firstNonEmpty(r.SellingPrice, r.ListPrice)),
		"Quantity: " + orDash(r.Quantity),
		"Description: " + orDash(r.AboutProduct),
		"Technical Details: " + orDash(r.TechnicalDetails),
		"Product Specification: " + orDash(r.ProductSpecification),
	}
	return s.styles.detail.Render(strings.Join(lines, "\n"))
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
