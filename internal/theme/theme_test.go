package theme

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/models"
)

func writeTheme(t *testing.T, root, id, file, body string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return dir
}

func TestLoadJSON(t *testing.T) {
	dir := writeTheme(t, t.TempDir(), "mojave", "theme.json", `{
		"displayName": "Mojave",
		"imageFilename": "mojave_dynamic_*.jpeg",
		"imageCredits": "Apple",
		"segments": {"Sunrise": [1, 2], "SolarNoon": [3, 4, 5], "Night": [16]}
	}`)

	th, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if th.ID != "mojave" || th.Name() != "Mojave" || th.Credits != "Apple" {
		t.Errorf("theme = %+v", th)
	}
	if got := th.Images(daysegment.SolarNoon); len(got) != 3 || got[0] != 3 {
		t.Errorf("SolarNoon images = %v", got)
	}
	if got := th.Images(daysegment.GoldenHour); len(got) != 1 || got[0] != 5 {
		t.Errorf("GoldenHour fallback = %v, want [5]", got)
	}
	if got := th.ImagePath(12); got != filepath.Join(dir, "mojave_dynamic_12.jpeg") {
		t.Errorf("ImagePath = %q", got)
	}
}

func TestLoadYAMLLegacyLists(t *testing.T) {
	dir := writeTheme(t, t.TempDir(), "bigsur", "theme.yaml", `
imageFilename: bigsur_*.jpg
sunriseImageList: [1]
dayImageList: [2, 3]
sunsetImageList: [4]
nightImageList: [5, 6]
`)

	th, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if th.Name() != "bigsur" {
		t.Errorf("Name() = %q, want id", th.Name())
	}
	tests := []struct {
		seg  daysegment.Segment
		want []int
	}{
		{daysegment.Sunrise, []int{1}},
		{daysegment.SolarNoon, []int{2, 3}},
		{daysegment.Sunset, []int{4}},
		{daysegment.Night, []int{5, 6}},
		{daysegment.Nadir, []int{6}},
	}
	for _, tt := range tests {
		got := th.Images(tt.seg)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.seg, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: got %v, want %v", tt.seg, got, tt.want)
			}
		}
	}
}

func TestLoadMissingDescriptor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for missing descriptor")
	}
}

func TestLoadReportsAllProblems(t *testing.T) {
	dir := writeTheme(t, t.TempDir(), "broken", "theme.json", `{
		"imageFilename": "broken.jpg",
		"segments": {"Noon": [1]}
	}`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error")
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("err = %T, want *multierror.Error", err)
	}
	msg := err.Error()
	for _, want := range []string{`unknown segment "Noon"`, "must contain exactly one", "no images"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateReservedID(t *testing.T) {
	th := &Theme{ID: models.NoTheme, ImageFilename: "x_*.jpg"}
	th.Segments[0] = []int{1}
	if err := Validate(th); err == nil {
		t.Fatal("expected reserved id error")
	}
}

func TestCheckFiles(t *testing.T) {
	dir := writeTheme(t, t.TempDir(), "files", "theme.json", `{"imageFilename": "img_*.png", "segments": {"Night": [1, 2]}}`)
	if err := os.WriteFile(filepath.Join(dir, "img_1.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	th, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	err = CheckFiles(th)
	if err == nil {
		t.Fatal("expected missing image error")
	}
	if !strings.Contains(err.Error(), "image 2") || strings.Contains(err.Error(), "image 1:") {
		t.Errorf("CheckFiles error = %q", err)
	}
}

func TestManagerLoadAll(t *testing.T) {
	root := t.TempDir()
	writeTheme(t, root, "b", "theme.json", `{"imageFilename": "b_*.jpg", "segments": {"Night": [1]}}`)
	writeTheme(t, root, "a", "theme.yml", "imageFilename: a_*.jpg\nnightImageList: [1]\n")
	writeTheme(t, root, "bad", "theme.json", `{"imageFilename": ""}`)
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(root, zerolog.Nop())
	err := m.LoadAll()
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Errorf("LoadAll err = %v, want error naming bad theme", err)
	}

	ids := m.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v, want [a b]", ids)
	}
	if _, err := m.Get("a"); err != nil {
		t.Errorf("Get(a): %v", err)
	}
	if _, err := m.Get("bad"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(bad) err = %v, want ErrNotFound", err)
	}
}

func TestManagerMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	if err := m.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected empty catalog")
	}
}

type shuffleStore struct {
	settings models.Settings
	picks    int
}

func (s *shuffleStore) GetSettings() (models.Settings, error) {
	return s.settings, nil
}

func (s *shuffleStore) SetShuffledTheme(id string, at time.Time) error {
	s.settings.ThemeID = id
	s.settings.LastShuffle = at
	s.picks++
	return nil
}

func catalogOf(t *testing.T, ids ...string) *Manager {
	t.Helper()
	m := NewManager(t.TempDir(), zerolog.Nop())
	for _, id := range ids {
		th := &Theme{ID: id, ImageFilename: id + "_*.jpg"}
		th.Segments[daysegment.Night.Index()] = []int{1}
		if err := m.Add(th); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return m
}

func TestShufflerOncePerDay(t *testing.T) {
	store := &shuffleStore{settings: models.Settings{ThemeID: "a", ShuffleEnabled: true}}
	s := NewShuffler(catalogOf(t, "a", "b", "c"), store, time.UTC, zerolog.Nop())
	s.SetRand(rand.New(rand.NewPCG(1, 2)))

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	changed, err := s.MaybeShuffle(now)
	if err != nil {
		t.Fatalf("MaybeShuffle: %v", err)
	}
	if !changed || store.settings.ThemeID == "a" {
		t.Fatalf("expected a new theme, got changed=%v theme=%q", changed, store.settings.ThemeID)
	}

	changed, err = s.MaybeShuffle(now.Add(10 * time.Hour))
	if err != nil {
		t.Fatalf("MaybeShuffle: %v", err)
	}
	if changed {
		t.Error("shuffled twice on the same day")
	}

	changed, err = s.MaybeShuffle(now.Add(24 * time.Hour))
	if err != nil {
		t.Fatalf("MaybeShuffle: %v", err)
	}
	if !changed || store.picks != 2 {
		t.Errorf("expected second shuffle the next day, picks=%d", store.picks)
	}
}

func TestShufflerDisabled(t *testing.T) {
	tests := []models.Settings{
		{ThemeID: "a", ShuffleEnabled: false},
		{ThemeID: models.NoTheme, ShuffleEnabled: true},
	}
	for _, settings := range tests {
		store := &shuffleStore{settings: settings}
		s := NewShuffler(catalogOf(t, "a", "b"), store, time.UTC, zerolog.Nop())
		changed, err := s.MaybeShuffle(time.Now())
		if err != nil || changed {
			t.Errorf("settings %+v: changed=%v err=%v", settings, changed, err)
		}
	}
}

func TestShufflerSingleTheme(t *testing.T) {
	store := &shuffleStore{settings: models.Settings{ThemeID: "a", ShuffleEnabled: true}}
	s := NewShuffler(catalogOf(t, "a"), store, time.UTC, zerolog.Nop())
	changed, err := s.MaybeShuffle(time.Now())
	if err != nil || changed {
		t.Errorf("changed=%v err=%v, want no change", changed, err)
	}
}
