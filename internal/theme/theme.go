// Package theme loads wallpaper themes: a directory of numbered images plus
// a descriptor mapping day segments to image ids.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"

	"github.com/lox/solarwall/internal/daysegment"
	"github.com/lox/solarwall/internal/models"
)

// ErrNotFound is returned when a theme id is not in the catalog.
var ErrNotFound = errors.New("theme not found")

// ImageToken is replaced by the image id in a theme's filename template.
const ImageToken = "*"

// Descriptor file names, in lookup order.
var descriptorFiles = []string{"theme.json", "theme.yaml", "theme.yml"}

type Theme struct {
	ID            string
	Dir           string
	DisplayName   string
	ImageFilename string
	Credits       string
	Segments      daysegment.ImageTable
}

// ImagePath returns the file path of image id.
func (t *Theme) ImagePath(id int) string {
	return filepath.Join(t.Dir, strings.ReplaceAll(t.ImageFilename, ImageToken, strconv.Itoa(id)))
}

// Images returns the image ids shown during seg, falling back to the
// nearest earlier segment that has images.
func (t *Theme) Images(seg daysegment.Segment) []int {
	return daysegment.ImagesFor(&t.Segments, seg)
}

// Name returns the display name, or the id when none is set.
func (t *Theme) Name() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.ID
}

type descriptor struct {
	DisplayName   string           `json:"displayName" yaml:"displayName"`
	ImageFilename string           `json:"imageFilename" yaml:"imageFilename"`
	ImageCredits  string           `json:"imageCredits" yaml:"imageCredits"`
	Segments      map[string][]int `json:"segments" yaml:"segments"`

	// Four-phase lists used by older themes.
	SunriseImageList []int `json:"sunriseImageList" yaml:"sunriseImageList"`
	DayImageList     []int `json:"dayImageList" yaml:"dayImageList"`
	SunsetImageList  []int `json:"sunsetImageList" yaml:"sunsetImageList"`
	NightImageList   []int `json:"nightImageList" yaml:"nightImageList"`
}

// Load reads the theme in dir. The theme id is the directory name.
func Load(dir string) (*Theme, error) {
	var (
		data []byte
		name string
		err  error
	)
	for _, name = range descriptorFiles {
		data, err = os.ReadFile(filepath.Join(dir, name))
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: no theme descriptor", dir)
		}
		return nil, err
	}

	var d descriptor
	if strings.HasSuffix(name, ".json") {
		err = json.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(dir, name), err)
	}

	return fromDescriptor(filepath.Base(dir), dir, d)
}

func fromDescriptor(id, dir string, d descriptor) (*Theme, error) {
	t := &Theme{
		ID:            id,
		Dir:           dir,
		DisplayName:   d.DisplayName,
		ImageFilename: d.ImageFilename,
		Credits:       d.ImageCredits,
	}

	var result *multierror.Error
	for name, ids := range d.Segments {
		seg, ok := daysegment.ByName(name)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("unknown segment %q", name))
			continue
		}
		t.Segments[seg.Index()] = ids
	}

	legacy := []struct {
		seg daysegment.Segment
		ids []int
	}{
		{daysegment.Sunrise, d.SunriseImageList},
		{daysegment.SolarNoon, d.DayImageList},
		{daysegment.Sunset, d.SunsetImageList},
		{daysegment.Night, d.NightImageList},
	}
	for _, l := range legacy {
		if len(l.ids) > 0 && len(t.Segments[l.seg.Index()]) == 0 {
			t.Segments[l.seg.Index()] = l.ids
		}
	}

	if err := Validate(t); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("theme %s: %w", id, err)
	}
	return t, nil
}

// Validate reports every structural problem with t.
func Validate(t *Theme) error {
	var result *multierror.Error
	if t.ID == "" {
		result = multierror.Append(result, errors.New("missing id"))
	}
	if t.ID == models.NoTheme {
		result = multierror.Append(result, fmt.Errorf("%q is reserved", models.NoTheme))
	}
	if t.ImageFilename == "" {
		result = multierror.Append(result, errors.New("missing imageFilename"))
	} else if strings.Count(t.ImageFilename, ImageToken) != 1 {
		result = multierror.Append(result, fmt.Errorf("imageFilename %q must contain exactly one %q", t.ImageFilename, ImageToken))
	}
	if t.Segments.Empty() {
		result = multierror.Append(result, errors.New("no images in any segment"))
	}
	for i, ids := range t.Segments {
		for _, id := range ids {
			if id < 0 {
				seg, _ := daysegment.ByIndex(i)
				result = multierror.Append(result, fmt.Errorf("segment %s: negative image id %d", seg, id))
			}
		}
	}
	return result.ErrorOrNil()
}

// CheckFiles reports every referenced image that does not exist on disk.
func CheckFiles(t *Theme) error {
	var result *multierror.Error
	seen := make(map[int]bool)
	for _, ids := range t.Segments {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := os.Stat(t.ImagePath(id)); err != nil {
				result = multierror.Append(result, fmt.Errorf("image %d: %w", id, err))
			}
		}
	}
	return result.ErrorOrNil()
}
