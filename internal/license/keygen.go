// Package license gates the interactive tools behind a keygen.sh license.
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

var (
	ErrLicenseRequired = errors.New("license key is required")
	ErrLicenseExpired  = errors.New("license has expired")
)

// Settings are the keygen.sh account credentials plus the license key.
type Settings struct {
	Key          string
	AccountID    string
	ProductID    string
	ProductToken string
}

// Enabled reports whether a license check is configured.
func (s Settings) Enabled() bool {
	return s.Key != ""
}

// Validator checks a license key.
type Validator interface {
	ValidateLicense(ctx context.Context, licenseKey string) error
}

// KeygenValidator handles license validation using Keygen.sh
type KeygenValidator struct {
	logger      *zap.Logger
	fingerprint func() (string, error)
}

// NewKeygenValidator configures the keygen client globals.
func NewKeygenValidator(s Settings, logger *zap.Logger) *KeygenValidator {
	keygen.Account = s.AccountID
	keygen.Product = s.ProductID
	keygen.Token = s.ProductToken

	return &KeygenValidator{
		logger:      logger,
		fingerprint: Fingerprint,
	}
}

// ValidateLicense validates licenseKey for this machine, activating the
// machine on first use.
func (kv *KeygenValidator) ValidateLicense(ctx context.Context, licenseKey string) error {
	kv.logger.Info("Validating license", zap.String("key", maskKey(licenseKey)))

	fingerprint, err := kv.fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	keygen.LicenseKey = licenseKey
	lic, err := keygen.Validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		kv.logger.Info("License not activated, attempting activation")
		machine, activateErr := lic.Activate(ctx, fingerprint)
		if activateErr != nil {
			return fmt.Errorf("failed to activate license: %w", activateErr)
		}
		kv.logger.Info("License activated", zap.String("machine_id", machine.ID))

	case errors.Is(err, keygen.ErrLicenseExpired):
		return ErrLicenseExpired

	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}

	if lic == nil {
		return fmt.Errorf("license not found")
	}

	kv.logger.Info("License validated", zap.String("license_id", lic.ID))
	return nil
}

// Check validates s.Key when a key is configured and is a no-op otherwise.
func Check(ctx context.Context, s Settings, v Validator, logger *zap.Logger) error {
	if !s.Enabled() {
		logger.Debug("License check disabled")
		return nil
	}
	if len(s.Key) < 8 {
		return fmt.Errorf("%w: key is too short", ErrLicenseRequired)
	}
	if v == nil {
		v = NewKeygenValidator(s, logger)
	}
	return v.ValidateLicense(ctx, s.Key)
}

// Fingerprint hashes the host name, the first hardware address of an up,
// non-loopback interface and the OS.
func Fingerprint() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	var macs []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			macs = append(macs, iface.HardwareAddr.String())
		}
	}
	sort.Strings(macs)

	return fingerprintOf(hostname, macs, runtime.GOOS), nil
}

func fingerprintOf(hostname string, macs []string, goos string) string {
	mac := "none"
	if len(macs) > 0 {
		mac = macs[0]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", hostname, mac, goos)))
	return fmt.Sprintf("%x", sum)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..."
}
