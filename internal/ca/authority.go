// Package ca issues card verifiable certificates. An Authority validates and
// encodes certificate data for a profile, signs it with a message recovery
// signer and wraps the result in the signed certificate TLV.
package ca

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cvca/internal/cvc"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/telemetry"
	"github.com/wolfeidau/cvca/internal/tlv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const tracerName = "github.com/wolfeidau/cvca/internal/ca"

// Certificate tags.
var (
	// CVCertificate wraps a signed certificate, encoded 7F21.
	CVCertificate = tlv.MustTag(33, tlv.ApplicationClass, true)
	// CVSignature holds the signature value, encoded 5F37.
	CVSignature = tlv.MustTag(55, tlv.ApplicationClass, false)
	// CVTrailing holds the payload bytes the signature does not recover, encoded 5F38.
	CVTrailing = tlv.MustTag(56, tlv.ApplicationClass, false)
)

// Authority issues certificates signed by a single issuer key.
// It is safe for concurrent use when the signer is.
type Authority struct {
	signer pki.RecoverySigner
}

// New returns an Authority signing with signer.
func New(signer pki.RecoverySigner) *Authority {
	return &Authority{signer: signer}
}

// Signer returns the signer the authority issues with.
func (a *Authority) Signer() pki.RecoverySigner { return a.signer }

// Issue validates data against profile, signs the payload and returns the
// signed certificate TLV. Validation failures abort before the signer is
// invoked; signer failures are returned unmodified.
func (a *Authority) Issue(ctx context.Context, profile cvc.Profile, data *cvc.CertificateData) (tlv.TLV, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ca.Issue")
	defer span.End()

	profileAttr := attribute.String("profile", profile.String())
	span.SetAttributes(profileAttr)
	metrics := telemetry.GetMetrics()

	fail := func(stage string, err error) (tlv.TLV, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		metrics.IssueErrorsTotal.Add(ctx, 1, metric.WithAttributes(profileAttr, attribute.String("stage", stage)))
		return tlv.TLV{}, err
	}

	if err := profile.Validate(data); err != nil {
		return fail("validate", err)
	}

	tbs, err := profile.Generate(data)
	if err != nil {
		return fail("generate", err)
	}
	metrics.PayloadBytes.Record(ctx, int64(len(tbs)), metric.WithAttributes(profileAttr))

	started := time.Now()
	sig, err := a.signer.SignRecoverable(ctx, tbs)
	metrics.SignDuration.Record(ctx, telemetry.Milliseconds(time.Since(started)), metric.WithAttributes(profileAttr))
	if err != nil {
		return fail("sign", err)
	}

	if sig.Recovered < 0 || sig.Recovered > len(tbs) {
		return fail("sign", fmt.Errorf("%w: signer recovered %d of %d bytes", ErrMalformedCertificate, sig.Recovered, len(tbs)))
	}
	trailing := tbs[sig.Recovered:]

	zerolog.Ctx(ctx).Debug().
		Str("profile", profile.String()).
		Bytes("chr", data.CHR).
		Int("recovered", sig.Recovered).
		Int("trailing", len(trailing)).
		Dur("duration", time.Since(started)).
		Msg("certificate signed")

	signature, err := tlv.New(CVSignature, tlv.NewLeaf(sig.Value))
	if err != nil {
		return fail("encode", err)
	}
	rest, err := tlv.New(CVTrailing, tlv.NewLeaf(trailing))
	if err != nil {
		return fail("encode", err)
	}
	cert, err := tlv.New(CVCertificate, tlv.NewConstructed(signature, rest))
	if err != nil {
		return fail("encode", err)
	}

	metrics.CertificatesIssuedTotal.Add(ctx, 1, metric.WithAttributes(profileAttr))
	return cert, nil
}

// IssueEncoded is Issue followed by encoding the certificate TLV.
func (a *Authority) IssueEncoded(ctx context.Context, profile cvc.Profile, data *cvc.CertificateData) ([]byte, error) {
	cert, err := a.Issue(ctx, profile, data)
	if err != nil {
		return nil, err
	}
	return tlv.Marshal(cert), nil
}
