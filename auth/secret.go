package auth

// Passphrase holds the session's master passphrase for as long as the
// session is open. Wipe must be called when the session ends.
type Passphrase struct {
	b []byte
}

// NewPassphrase copies s into a wipeable buffer.
func NewPassphrase(s string) *Passphrase {
	return &Passphrase{b: []byte(s)}
}

// Bytes exposes the buffer. Callers must not retain it past Wipe.
func (p *Passphrase) Bytes() []byte {
	if p == nil {
		return nil
	}
	return p.b
}

// Empty reports whether the passphrase was never set or has been wiped.
func (p *Passphrase) Empty() bool {
	return p == nil || len(p.b) == 0
}

// Wipe zeroes and releases the buffer.
func (p *Passphrase) Wipe() {
	if p == nil {
		return
	}
	for i := range p.b {
		p.b[i] = 0
	}
	p.b = nil
}
