// Package mp4probe reads video stream metadata from ISO-BMFF (MP4/MOV) containers.
package mp4probe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/frame2prompt/pkg/ports"
)

var (
	ErrNoVideoTrack   = errors.New("mp4probe: no video track found")
	ErrIncompleteInfo = errors.New("mp4probe: video track metadata incomplete")
)

// ProbeFile parses the container at path and returns the first video track's metadata.
func ProbeFile(path string) (ports.VideoInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ports.VideoInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ProbeReader(f)
}

// ProbeReader parses an MP4 from reader.
func ProbeReader(reader io.ReadSeeker) (ports.VideoInfo, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return ports.VideoInfo{}, fmt.Errorf("decode mp4: %w", err)
	}

	if mp4File.IsFragmented() {
		return probeFragmented(mp4File)
	}
	return probeProgressive(mp4File)
}

func probeProgressive(mp4File *mp4.File) (ports.VideoInfo, error) {
	if mp4File.Moov == nil {
		return ports.VideoInfo{}, ErrNoVideoTrack
	}
	for _, trak := range mp4File.Moov.Traks {
		if !isVideoTrack(trak) {
			continue
		}
		info, err := infoFromTrack(trak)
		if err != nil {
			return ports.VideoInfo{}, err
		}
		return info, nil
	}
	return ports.VideoInfo{}, ErrNoVideoTrack
}

func probeFragmented(mp4File *mp4.File) (ports.VideoInfo, error) {
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return ports.VideoInfo{}, ErrNoVideoTrack
	}

	var trak *mp4.TrakBox
	for _, t := range mp4File.Init.Moov.Traks {
		if isVideoTrack(t) {
			trak = t
			break
		}
	}
	if trak == nil {
		return ports.VideoInfo{}, ErrNoVideoTrack
	}

	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if mp4File.Init.Moov.Mvex != nil {
		for _, t := range mp4File.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	// Sample tables in fragmented files are empty; count from the fragments.
	var samples int
	var duration uint64
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return ports.VideoInfo{}, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range full {
				samples++
				duration += uint64(s.Dur)
			}
		}
	}

	width, height := dimensions(trak)
	return assemble(samples, duration, trak.Mdia.Mdhd, width, height)
}

func isVideoTrack(trak *mp4.TrakBox) bool {
	return trak != nil && trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide"
}

// infoFromTrack derives VideoInfo from a progressive track's sample tables.
func infoFromTrack(trak *mp4.TrakBox) (ports.VideoInfo, error) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsz == nil {
		return ports.VideoInfo{}, ErrIncompleteInfo
	}

	samples := int(trak.Mdia.Minf.Stbl.Stsz.SampleNumber)
	var duration uint64
	if trak.Mdia.Mdhd != nil {
		duration = trak.Mdia.Mdhd.Duration
	}

	width, height := dimensions(trak)
	return assemble(samples, duration, trak.Mdia.Mdhd, width, height)
}

func assemble(samples int, duration uint64, mdhd *mp4.MdhdBox, width, height int) (ports.VideoInfo, error) {
	if mdhd == nil || mdhd.Timescale == 0 || duration == 0 || samples == 0 {
		return ports.VideoInfo{}, ErrIncompleteInfo
	}

	seconds := float64(duration) / float64(mdhd.Timescale)
	info := ports.VideoInfo{
		FrameRate:  float64(samples) / seconds,
		FrameCount: samples,
		Width:      width,
		Height:     height,
	}
	if !info.Valid() {
		return ports.VideoInfo{}, ErrIncompleteInfo
	}
	return info, nil
}

func dimensions(trak *mp4.TrakBox) (int, int) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return 0, 0
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if entry, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return int(entry.Width), int(entry.Height)
		}
	}
	return 0, 0
}
