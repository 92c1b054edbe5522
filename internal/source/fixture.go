package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/foxzi/copysmith/internal/generate"
	"github.com/foxzi/copysmith/internal/models"
)

// Fixture returns canned records chosen by URL substring. It never touches
// the network.
type Fixture struct{}

func NewFixture() *Fixture {
	return &Fixture{}
}

// Analyze picks the webinar, product or generic record for pageURL
func (f *Fixture) Analyze(ctx context.Context, pageURL string) (*models.AnalyzedData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data models.AnalyzedData
	switch {
	case strings.Contains(pageURL, "webinar"):
		data = webinarFixture
	case strings.Contains(pageURL, "product"):
		data = productFixture
	default:
		data = offerFixture
	}

	// Callers own the result
	data.KeyPoints = append([]string(nil), data.KeyPoints...)
	return &data, nil
}

// Regenerate marks the value as regenerated
func (f *Fixture) Regenerate(ctx context.Context, field, value, pageURL string) (string, error) {
	switch field {
	case generate.FieldSubject, generate.FieldPreheader:
		return value + " (Regenerated)", nil
	case generate.FieldBody:
		return value + "\n\n[Regenerated content would appear here]", nil
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}

var webinarFixture = models.AnalyzedData{
	StructuredContent: models.StructuredContent{
		Title:       "Transform Your Marketing Strategy",
		Description: "A live webinar where industry experts share proven marketing techniques.",
		MainHeading: "Transform Your Marketing Strategy in 2023",
		SubHeading:  "Join industry experts to learn cutting-edge marketing techniques",
		CTAText:     "Register Now",
		KeyPoints: []string{
			"Proven strategies to increase conversion rates by up to 35%",
			"The latest trends in digital marketing that are driving results",
			"Step-by-step frameworks you can implement immediately",
			"Real case studies from businesses that have transformed their approach",
		},
		Tone:     "professional",
		Industry: "marketing",
	},
	EmailCopy: models.EmailCopy{
		SubjectLine: "Don't Miss Our Exclusive Webinar: Transform Your Marketing Strategy",
		Preheader:   "Join industry experts to learn cutting-edge marketing techniques",
		EmailBody: `Hi there,

We're excited to invite you to our upcoming webinar "Transform Your Marketing Strategy in 2023" happening next Thursday at 2 PM EST.

In this exclusive session, our panel of industry experts will share:

• Proven strategies to increase conversion rates by up to 35%
• The latest trends in digital marketing that are driving results
• Step-by-step frameworks you can implement immediately
• Real case studies from businesses that have transformed their approach

Spaces are limited, so secure your spot today by clicking the button below.

[Register Now]

Can't make it live? Register anyway and we'll send you the recording.

Looking forward to seeing you there!

Best regards,
The Marketing Team`,
		CTAText: "Register Now",
	},
}

var productFixture = models.AnalyzedData{
	StructuredContent: models.StructuredContent{
		Title:       "Our New Product",
		Description: "A newly launched product built to solve your biggest challenges.",
		MainHeading: "The Solution You've Been Waiting For",
		SubHeading:  "Discover how our new product can solve your biggest challenges",
		CTAText:     "Shop Now",
		KeyPoints: []string{
			"Intuitive design that makes implementation a breeze",
			"Advanced features that outperform competitors by 40%",
			"Seamless integration with your existing tools",
			"Dedicated support to ensure your success",
		},
		Tone:     "enthusiastic",
		Industry: "software",
	},
	EmailCopy: models.EmailCopy{
		SubjectLine: "Introducing Our New Product: The Solution You've Been Waiting For",
		Preheader:   "Discover how our new product can solve your biggest challenges",
		EmailBody: `Hello,

We're thrilled to announce the launch of our newest product that's designed to solve the challenges you've been facing.

Our team has spent months perfecting every detail to ensure it delivers exceptional results for customers like you. Here's what makes it special:

• Intuitive design that makes implementation a breeze
• Advanced features that outperform competitors by 40%
• Seamless integration with your existing tools
• Dedicated support to ensure your success

For a limited time, we're offering an exclusive 20% discount for early adopters.

[Shop Now]

Not quite ready? Schedule a personalized demo with our product specialists to see it in action.

[Book a Demo]

We can't wait for you to experience the difference.

Warm regards,
The Product Team`,
		CTAText: "Shop Now",
	},
}

var offerFixture = models.AnalyzedData{
	StructuredContent: models.StructuredContent{
		Title:       "Special Offer",
		Description: "A limited time discount on popular products and services.",
		MainHeading: "Save 25% This Week Only",
		SubHeading:  "Limited time discount on our most popular products and services",
		CTAText:     "Shop Now",
		KeyPoints: []string{
			"25% off any product or service",
			"Free shipping on orders over $50",
			"Extended 60-day return policy",
			"Priority customer support",
		},
		Tone:     "friendly",
		Industry: "retail",
	},
	EmailCopy: models.EmailCopy{
		SubjectLine: "Special Offer Just For You: Save 25% This Week Only",
		Preheader:   "Limited time discount on our most popular products and services",
		EmailBody: `Dear Valued Customer,

We wanted to reach out with an exclusive offer just for you. As one of our loyal customers, you can now enjoy 25% off your next purchase.

Why are we doing this?

We appreciate your continued support and want to give something back. This special discount is our way of saying thank you.

Here's what's included:

• 25% off any product or service
• Free shipping on orders over $50
• Extended 60-day return policy
• Priority customer support

This offer is valid until the end of this week, so don't miss out!

[Shop Now]

Thank you for being part of our journey.

Best regards,
The Customer Success Team`,
		CTAText: "Shop Now",
	},
}
