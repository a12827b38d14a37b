package enrich

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/malcrawl/internal/catalog"
	"github.com/JakeFAU/malcrawl/internal/output"
)

type fakeProfiles struct {
	profiles map[int]*Profile
	errs     map[int]error
	calls    []int
}

func (f *fakeProfiles) Character(_ context.Context, id int) (*Profile, error) {
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.profiles[id], nil
}

type fakeWaiter struct {
	turns int
	err   error
}

func (w *fakeWaiter) WaitTurn(context.Context) error {
	w.turns++
	return w.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) CPUTime() time.Duration { return 0 }

func ptr[T any](v T) *T { return &v }

func crawlCSV(rows ...output.Row) string {
	var b strings.Builder
	b.WriteString(strings.Join(output.Header, ",") + "\n")
	for _, row := range rows {
		b.WriteString(output.FormatRow(row) + "\n")
	}
	return b.String()
}

func TestRunAppendsProfiles(t *testing.T) {
	t.Parallel()

	profiles := &fakeProfiles{profiles: map[int]*Profile{
		5: {
			Description: ptr("A &quot;gifted&quot; alchemist &amp; more\nsecond line"),
			Gender:      ptr("Male"),
			DateOfBirth: FuzzyDate{Month: ptr(2), Day: ptr(3)},
			Age:         ptr("15"),
			BloodType:   ptr("A"),
		},
	}}
	waiter := &fakeWaiter{}
	enricher := New(profiles, waiter, &fakeClock{now: time.Unix(0, 0)}, nil)

	input := crawlCSV(
		output.Row{
			ID: 5, Name: `Edward "Ed" Elric`, URL: "https://myanimelist.net/character/5", Favorites: 10,
			MostPopularEntry: "Fullmetal Alchemist, Brotherhood", MPEURL: "https://myanimelist.net/anime/5114",
			MPEMembers: "3000000", MPEType: "TV", MPESource: "Manga",
		},
		output.Row{ID: 6, Name: "Nobody", URL: "https://myanimelist.net/character/6"},
	)
	var out bytes.Buffer
	res, err := enricher.Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, 1, res.Successes)
	require.Equal(t, 2, waiter.turns)
	require.Equal(t, []int{5, 6}, profiles.calls)
	require.Contains(t, res.String(), "1 successful requests")

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t,
		"id,name,url,favorites,mostPopularEntry,mpeURL,mpeMembers,mpeType,mpeSource,gender,dateOfBirth,age,bloodType,description",
		lines[0])
	require.True(t, strings.HasSuffix(lines[1], `,Male,2/3/,"15",A,"A ''gifted'' alchemist & moresecond line"`), lines[1])
	require.True(t, strings.HasPrefix(lines[1], `5,"Edward ""Ed"" Elric",`), lines[1])
	require.True(t, strings.HasSuffix(lines[2], `,//,"",,""`), lines[2])

	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Len(t, records[1], 14)
	require.Equal(t, "Fullmetal Alchemist, Brotherhood", records[1][4])
	require.Equal(t, "//", records[2][10])
}

func TestRunContinuesPastUpstreamFailures(t *testing.T) {
	t.Parallel()

	profiles := &fakeProfiles{errs: map[int]error{
		1: &catalog.UpstreamError{Kind: catalog.ErrKindRateLimited, Op: "anilist character", ID: 1, Status: 429},
	}}
	enricher := New(profiles, &fakeWaiter{}, &fakeClock{}, nil)

	var out bytes.Buffer
	res, err := enricher.Run(context.Background(), strings.NewReader(crawlCSV(output.Row{ID: 1, Name: "A"})), &out)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)
	require.Zero(t, res.Successes)
}

func TestRunAbortsOnCancellation(t *testing.T) {
	t.Parallel()

	enricher := New(&fakeProfiles{}, &fakeWaiter{err: context.Canceled}, &fakeClock{}, nil)
	var out bytes.Buffer
	_, err := enricher.Run(context.Background(), strings.NewReader(crawlCSV(output.Row{ID: 1, Name: "A"})), &out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	enricher := New(&fakeProfiles{}, &fakeWaiter{}, &fakeClock{}, nil)
	var out bytes.Buffer
	_, err := enricher.Run(context.Background(), strings.NewReader(""), &out)
	require.Error(t, err)

	_, err = enricher.Run(context.Background(), strings.NewReader(crawlCSV()+"abc,1\n"), &out)
	require.Error(t, err)
}

func TestRunFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "data.csv")
	outPath := filepath.Join(dir, "nested", "dataMod.csv")
	require.NoError(t, os.WriteFile(in, []byte(crawlCSV(output.Row{ID: 2, Name: "B"})), 0o600))

	enricher := New(&fakeProfiles{}, &fakeWaiter{}, &fakeClock{}, nil)
	res, err := enricher.RunFiles(context.Background(), in, outPath)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `2,"B",`)
}

func TestFormatProfileDateParts(t *testing.T) {
	t.Parallel()

	got := FormatProfile(&Profile{DateOfBirth: FuzzyDate{Year: ptr(1899)}})
	require.Equal(t, `,//1899,"",,""`, got)
}
