package frontend

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	SAMPLE_RATE = 44100 // Output samples per second.
	TONE_PITCH  = 440   // Tone frequency in Hz.
	TONE_VOLUME = 0x1000
)

// squareWave is a mono signed 16-bit little endian tone source that
// plays while its deadline is in the future, and is silent otherwise.
type squareWave struct {
	mutex  sync.Mutex
	rate   int       // Samples per second.
	pitch  int       // Tone frequency.
	phase  int       // Sample index within the current period.
	until  time.Time // End of the tone.
	now    func() time.Time
	volume int16
}

// Read fills p with whole samples.
func (sw *squareWave) Read(p []byte) (n int, err error) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	on := sw.now().Before(sw.until)
	period := max(sw.rate/sw.pitch, 2)

	for n+2 <= len(p) {
		var sample int16
		if on {
			sample = sw.volume
			if sw.phase >= period/2 {
				sample = -sw.volume
			}
		}
		binary.LittleEndian.PutUint16(p[n:], uint16(sample))
		sw.phase = (sw.phase + 1) % period
		n += 2
	}

	return
}

// extend keeps the tone on for at least d from now.
func (sw *squareWave) extend(d time.Duration) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	until := sw.now().Add(d)
	if until.After(sw.until) {
		sw.until = until
	}
}

// Beeper sounds the CHIP-8 tone on the host audio device.
type Beeper struct {
	wave    *squareWave
	context *oto.Context
	player  *oto.Player
}

// NewBeeper opens the audio device and starts a silent stream.
func NewBeeper() (beeper *Beeper, err error) {
	op := &oto.NewContextOptions{
		SampleRate:   SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return
	}
	<-ready

	wave := &squareWave{
		rate:   SAMPLE_RATE,
		pitch:  TONE_PITCH,
		now:    time.Now,
		volume: TONE_VOLUME,
	}

	beeper = &Beeper{
		wave:    wave,
		context: ctx,
		player:  ctx.NewPlayer(wave),
	}
	beeper.player.Play()

	return
}

// Beep sounds the tone for the given duration.
func (beeper *Beeper) Beep(d time.Duration) {
	beeper.wave.extend(d)
}

// Close stops the audio stream.
func (beeper *Beeper) Close() (err error) {
	return beeper.player.Close()
}
