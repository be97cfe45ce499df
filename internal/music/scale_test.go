package music

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cMajor(t *testing.T) Scale {
	t.Helper()
	s, err := BuildScale("Diatonic", "Major", "C4")
	require.NoError(t, err)
	return s
}

func TestBuildScale(t *testing.T) {
	s := cMajor(t)
	require.Equal(t, 60, s.Root)
	require.Equal(t, []int{0, 2, 4, 5, 7, 9, 11}, s.Intervals)
	require.Equal(t, 7, s.Len())
}

func TestBuildScaleUnknown(t *testing.T) {
	_, err := BuildScale("Diatonic", "Mystery", "C4")
	require.Error(t, err)
	_, err = BuildScale("Nonexistent", "Major", "C4")
	require.Error(t, err)
	_, err = BuildScale("Diatonic", "Major", "X4")
	require.Error(t, err)
}

func TestScaleContains(t *testing.T) {
	s := cMajor(t)
	for _, p := range []int{60, 62, 64, 65, 67, 69, 71, 72, 48} {
		require.True(t, s.Contains(p), "pitch %d", p)
	}
	for _, p := range []int{61, 63, 66, 68, 70} {
		require.False(t, s.Contains(p), "pitch %d", p)
	}
}

func TestDegreePitch(t *testing.T) {
	s := cMajor(t)
	require.Equal(t, 60, s.DegreePitch(0, 0))
	require.Equal(t, 64, s.DegreePitch(2, 0)) // E4
	require.Equal(t, 67, s.DegreePitch(4, 0)) // G4
	require.Equal(t, 72, s.DegreePitch(7, 0)) // wraps to C5
	require.Equal(t, 74, s.DegreePitch(8, 0)) // D5
	require.Equal(t, 48, s.DegreePitch(0, -1))
}

func TestPitchesBetween(t *testing.T) {
	s := cMajor(t)
	got := s.PitchesBetween(60, 72)
	require.Equal(t, []int{60, 62, 64, 65, 67, 69, 71, 72}, got)
}

func TestFindScale(t *testing.T) {
	s, err := FindScale("Minor Pentatonic", "A3")
	require.NoError(t, err)
	require.Equal(t, 57, s.Root)
	require.Equal(t, []int{0, 3, 5, 7, 10}, s.Intervals)

	_, err = FindScale("Nope", "C4")
	require.Error(t, err)
}

func TestFamiliesCatalog(t *testing.T) {
	fams := Families()
	require.Contains(t, fams, "Diatonic")
	require.Contains(t, fams, "Pentatonic")
	for _, fam := range fams {
		names := ScalesIn(fam)
		require.NotEmpty(t, names, fam)
		for _, name := range names {
			s, err := BuildScale(fam, name, "C4")
			require.NoError(t, err)
			require.Equal(t, 0, s.Intervals[0], "%s/%s must start on the root", fam, name)
		}
	}
	require.Nil(t, ScalesIn("Nonexistent"))
}
