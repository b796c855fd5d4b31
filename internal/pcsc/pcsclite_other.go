//go:build !linux

package pcsc

import "context"

// PCSCLite is the Linux-only cgo backend (see pcsclite_linux.go). On other
// platforms every method fails with ErrUnsupportedPlatform rather than
// silently no-opping;
// callers should use pcscfake.New for tests, or add a platform-specific
// backend (macOS's PCSC.framework, Windows's winscard.dll) following the
// same ResourceManager shape.
type PCSCLite struct{}

// NewPCSCLite returns a backend whose every method reports
// ErrUnsupportedPlatform outside Linux.
func NewPCSCLite() *PCSCLite { return &PCSCLite{} }

func (PCSCLite) EstablishContext(context.Context) (Context, error) {
	return 0, ErrUnsupportedPlatform
}
func (PCSCLite) ReleaseContext(context.Context, Context) error { return ErrUnsupportedPlatform }
func (PCSCLite) ListReaders(context.Context, Context) ([]string, error) {
	return nil, ErrUnsupportedPlatform
}
func (PCSCLite) GetStatusChange(context.Context, Context, []ReaderState) ([]ReaderState, error) {
	return nil, ErrUnsupportedPlatform
}
func (PCSCLite) Connect(context.Context, Context, string, ShareMode, Protocol) (Handle, Protocol, error) {
	return 0, ProtocolUndefined, ErrUnsupportedPlatform
}
func (PCSCLite) Disconnect(context.Context, Handle, Disposition) error {
	return ErrUnsupportedPlatform
}
func (PCSCLite) Transmit(context.Context, Handle, Protocol, []byte, int) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}
