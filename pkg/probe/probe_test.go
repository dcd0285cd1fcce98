package probe

import (
	"errors"
	"image"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/spatial/r3"
)

func writeTIFF(t *testing.T, fs billy.Filesystem, name string, img image.Image) {
	t.Helper()
	f, err := fs.Create(name)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, img, nil))
	require.NoError(t, f.Close())
}

type countingProber struct {
	calls int
	info  *FileInfo
	err   error
}

func (c *countingProber) Probe(string) (*FileInfo, error) {
	c.calls++
	return c.info, c.err
}

func TestTIFFProber(t *testing.T) {
	fs := memfs.New()
	writeTIFF(t, fs, "data/plane_z0.tif", image.NewGray(image.Rect(0, 0, 64, 32)))
	writeTIFF(t, fs, "data/rgb.tif", image.NewRGBA(image.Rect(0, 0, 8, 8)))

	p := NewTIFFProber(fs)

	info, err := p.Probe("data/plane_z0.tif")
	require.NoError(t, err)
	require.Len(t, info.Series, 1)
	s := info.Series[0]
	assert.Equal(t, 64, s.Width)
	assert.Equal(t, 32, s.Height)
	assert.Equal(t, 1, s.Depth)
	assert.Equal(t, 1, s.ChannelCount)
	assert.Equal(t, 1, s.Timepoints)
	assert.Equal(t, 1, s.SamplesPerPixel)
	assert.False(t, info.Grouped())

	info, err = p.Probe("data/rgb.tif")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Series[0].SamplesPerPixel)

	_, err = p.Probe("data/stack.czi")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = p.Probe("data/missing.tif")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSidecarProber(t *testing.T) {
	fs := memfs.New()
	want := &FileInfo{
		Series: []SeriesInfo{
			{
				Width: 512, Height: 512, Depth: 50,
				VoxelSize:    r3.Vec{X: 0.2, Y: 0.2, Z: 1},
				VoxelUnit:    "µm",
				ChannelCount: 2,
				Channels:     []ChannelInfo{{Name: "GFP", WavelengthNm: 488}, {Name: "RFP", WavelengthNm: 561}},
				StagePosition: &r3.Vec{X: 100, Y: 200},
				Timepoints:    3,
			},
		},
	}
	require.NoError(t, WriteSidecar(fs, "stack.czi", want))

	p := NewSidecarProber(fs)
	got, err := p.Probe("stack.czi")
	require.NoError(t, err)
	require.Len(t, got.Series, 1)
	assert.Equal(t, 50, got.Series[0].Depth)
	assert.Equal(t, "RFP", got.Series[0].Channel(1).Name)
	assert.Equal(t, ChannelInfo{}, got.Series[0].Channel(5))
	assert.Equal(t, &r3.Vec{X: 100, Y: 200}, got.Series[0].StagePosition)
	assert.Equal(t, 3, got.Series[0].Timepoints)
	assert.Equal(t, 1, got.Series[0].SamplesPerPixel)

	_, err = p.Probe("other.czi")
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestChain(t *testing.T) {
	fs := memfs.New()
	writeTIFF(t, fs, "a.tif", image.NewGray16(image.Rect(0, 0, 4, 4)))

	chain := Chain{NewSidecarProber(fs), NewTIFFProber(fs)}
	info, err := chain.Probe("a.tif")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Series[0].Width)

	_, err = chain.Probe("a.nd2")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	boom := errors.New("disk on fire")
	chain = Chain{&countingProber{err: boom}, NewTIFFProber(fs)}
	_, err = chain.Probe("a.tif")
	assert.ErrorIs(t, err, boom)
}

func TestCachedProber(t *testing.T) {
	// memfs reports the current time as ModTime, which would change the key
	// on every call.
	fs := osfs.New(t.TempDir())
	writeTIFF(t, fs, "a.tif", image.NewGray(image.Rect(0, 0, 4, 4)))

	cache, err := NewCache(fs, ".cache")
	require.NoError(t, err)

	inner := &countingProber{info: &FileInfo{Series: []SeriesInfo{{Width: 4, Height: 4, Depth: 1, ChannelCount: 1, Timepoints: 7}}}}
	p := NewCachedProber(inner, cache, fs, nil)

	first, err := p.Probe("a.tif")
	require.NoError(t, err)
	second, err := p.Probe("a.tif")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first.Series[0].Timepoints, second.Series[0].Timepoints)

	stat, err := fs.Stat("a.tif")
	require.NoError(t, err)
	_, ok, err := cache.Get(Key("a.tif", stat), "b.tif")
	require.NoError(t, err)
	assert.False(t, ok)
}
