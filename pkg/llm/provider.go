package llm

import (
	"context"
	"fmt"
)

// Provider sends one conversation to an LLM backend and returns the
// response delta. Implementations translate the conversation into their
// wire format and classify failures into the error kinds of this package.
type Provider interface {
	Send(ctx context.Context, messages []Message, cfg Config) (*Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, messages []Message, cfg Config) (*Response, error)

func (f ProviderFunc) Send(ctx context.Context, messages []Message, cfg Config) (*Response, error) {
	return f(ctx, messages, cfg)
}

// Variant is the closed set of provider slots a request can be routed to.
type Variant int

const (
	VariantPrimary Variant = iota
	VariantGoogle
	VariantOpenAI
)

func (v Variant) String() string {
	switch v {
	case VariantPrimary:
		return "primary"
	case VariantGoogle:
		return "google"
	case VariantOpenAI:
		return "openai"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// SelectVariant maps a config to its provider slot. Any model other than
// CustomModel uses the primary slot; CustomModel consults cfg.Provider.
func SelectVariant(cfg Config) (Variant, error) {
	if cfg.Model != CustomModel {
		return VariantPrimary, nil
	}
	switch cfg.Provider {
	case ProviderGoogle:
		return VariantGoogle, nil
	case ProviderOpenAI:
		return VariantOpenAI, nil
	default:
		return 0, &PreconditionError{Reason: fmt.Sprintf("invalid provider %q for custom model", cfg.Provider)}
	}
}

// ProviderFactory resolves a variant to a provider.
type ProviderFactory interface {
	Provider(v Variant) (Provider, error)
}

// Providers is the default ProviderFactory: one provider per implemented slot.
type Providers struct {
	Primary Provider
	Google  Provider
}

func (p Providers) Provider(v Variant) (Provider, error) {
	switch v {
	case VariantPrimary:
		if p.Primary != nil {
			return p.Primary, nil
		}
		return nil, &PreconditionError{Reason: "primary provider is not configured"}
	case VariantGoogle:
		if p.Google != nil {
			return p.Google, nil
		}
		return nil, &PreconditionError{Reason: "Google provider is not configured"}
	case VariantOpenAI:
		return nil, &PreconditionError{Reason: "OpenAI provider coming soon."}
	default:
		return nil, &PreconditionError{Reason: fmt.Sprintf("unknown provider %s", v)}
	}
}
