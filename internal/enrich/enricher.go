// Package enrich appends AniList demographics to a finished crawl CSV. MyAnimeList
// and AniList share character ids, so rows are joined on the id column.
package enrich

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/malcrawl/internal/catalog"
	"github.com/JakeFAU/malcrawl/internal/output"
)

// DefaultWait paces AniList requests under its 90 requests per minute limit.
const DefaultWait = 700 * time.Millisecond

// ExtraHeader lists the columns appended to each crawl row.
var ExtraHeader = []string{"gender", "dateOfBirth", "age", "bloodType", "description"}

// Profiles looks up a character profile; nil means unknown.
type Profiles interface {
	Character(ctx context.Context, id int) (*Profile, error)
}

// Waiter blocks before each outbound request.
type Waiter interface {
	WaitTurn(ctx context.Context) error
}

// Clock reports wall and process CPU time.
type Clock interface {
	Now() time.Time
	CPUTime() time.Duration
}

// Result summarizes an enrichment pass.
type Result struct {
	Rows      int
	Successes int
	Wall      time.Duration
	CPU       time.Duration
}

// String renders the result in the summary line format.
func (r Result) String() string {
	return fmt.Sprintf("%d successful requests\nperf counter: %.3f seconds, process time: %.3f seconds.",
		r.Successes, r.Wall.Seconds(), r.CPU.Seconds())
}

// Enricher joins crawl rows with AniList profiles.
type Enricher struct {
	profiles Profiles
	limiter  Waiter
	clock    Clock
	logger   *zap.Logger
}

// New creates an Enricher.
func New(profiles Profiles, limiter Waiter, clock Clock, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{profiles: profiles, limiter: limiter, clock: clock, logger: logger}
}

// RunFiles enriches the CSV at inPath into outPath, truncating outPath.
func (e *Enricher) RunFiles(ctx context.Context, inPath, outPath string) (Result, error) {
	// #nosec G304 -- the input path is operator supplied.
	in, err := os.Open(inPath)
	if err != nil {
		return Result{}, fmt.Errorf("open input %s: %w", inPath, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return Result{}, fmt.Errorf("create output dir for %s: %w", outPath, err)
	}
	// #nosec G304 -- the output path is operator supplied.
	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("create output %s: %w", outPath, err)
	}
	res, runErr := e.Run(ctx, in, out)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output %s: %w", outPath, err)
	}
	return res, runErr
}

// Run reads crawl rows from in (header skipped) and writes enriched rows to out.
// Characters AniList cannot supply get empty columns; only context
// cancellation and I/O failures abort the pass.
func (e *Enricher) Run(ctx context.Context, in io.Reader, out io.Writer) (Result, error) {
	start := e.clock.Now()
	cpuStart := e.clock.CPUTime()
	var res Result
	finish := func(err error) (Result, error) {
		res.Wall = e.clock.Now().Sub(start)
		res.CPU = e.clock.CPUTime() - cpuStart
		return res, err
	}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = len(output.Header)
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return finish(errors.New("input has no header"))
		}
		return finish(fmt.Errorf("read header: %w", err))
	}
	header := strings.Join(append(append([]string(nil), output.Header...), ExtraHeader...), ",")
	if _, err := io.WriteString(out, header+"\n"); err != nil {
		return finish(fmt.Errorf("write header: %w", err))
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return finish(fmt.Errorf("read row: %w", err))
		}
		id, err := strconv.Atoi(record[0])
		if err != nil {
			return finish(fmt.Errorf("row id %q: %w", record[0], err))
		}

		if err := e.limiter.WaitTurn(ctx); err != nil {
			return finish(fmt.Errorf("wait before character %d: %w", id, err))
		}
		profile, err := e.profiles.Character(ctx, id)
		if err != nil {
			if !catalog.IsUpstream(err) || ctx.Err() != nil {
				return finish(fmt.Errorf("character %d: %w", id, err))
			}
			e.logger.Warn("anilist lookup failed", zap.Int("id", id), zap.Error(err))
			profile = nil
		}
		if profile != nil {
			res.Successes++
		}

		line := FormatRecord(record) + "," + FormatProfile(profile)
		if _, err := io.WriteString(out, line+"\n"); err != nil {
			return finish(fmt.Errorf("write row %d: %w", id, err))
		}
		res.Rows++
	}
	e.logger.Info("enrichment finished", zap.Int("rows", res.Rows), zap.Int("successes", res.Successes))
	return finish(nil)
}

// FormatRecord re-serializes a parsed crawl row the way output.FormatRow wrote it.
func FormatRecord(record []string) string {
	fields := append([]string(nil), record...)
	fields[1] = output.Quote(fields[1])
	fields[4] = output.Quote(fields[4])
	return strings.Join(fields, ",")
}

var descriptionCleaner = strings.NewReplacer(`"`, `''`, "\r", "", "\n", "")

// FormatProfile renders the appended columns. A nil profile yields empty
// fields and a "//" date.
func FormatProfile(p *Profile) string {
	if p == nil {
		return `,//,"",,""`
	}
	description := descriptionCleaner.Replace(html.UnescapeString(deref(p.Description)))
	return strings.Join([]string{
		strings.ReplaceAll(deref(p.Gender), ",", ""),
		formatDate(p.DateOfBirth),
		`"` + strings.ReplaceAll(deref(p.Age), `"`, `''`) + `"`,
		strings.ReplaceAll(deref(p.BloodType), ",", ""),
		`"` + description + `"`,
	}, ",")
}

func formatDate(d FuzzyDate) string {
	part := func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	}
	return part(d.Month) + "/" + part(d.Day) + "/" + part(d.Year)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
