package capture

// ImpactStrength selects the haptic impact intensity.
type ImpactStrength int

const (
	ImpactLight ImpactStrength = iota
	ImpactMedium
)

// Effects are opaque fire-and-forget side-effect triggers. They never
// influence pipeline state or control flow.
type Effects interface {
	HapticSuccess()
	HapticImpact(strength ImpactStrength)
	CopyToClipboard(value string)
}

// NoopEffects discards all triggers. Used on headless hosts.
type NoopEffects struct{}

func (NoopEffects) HapticSuccess()              {}
func (NoopEffects) HapticImpact(ImpactStrength) {}
func (NoopEffects) CopyToClipboard(string)      {}
