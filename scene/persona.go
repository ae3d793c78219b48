package scene

// MediaKind is the generation target of a persona.
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
)

// Persona is a creative stance that conditions both the analysis
// instructions and the generation target. The set is closed: every persona
// carries its own instruction block and media target.
type Persona int

const (
	PersonaComprehensive Persona = iota
	PersonaAnalyst
	PersonaEcommerce
	PersonaInfluencer
	PersonaPhotographer
	PersonaDesigner
	PersonaVideographer
)

// Personas lists all personas in display order.
func Personas() []Persona {
	return []Persona{
		PersonaAnalyst,
		PersonaEcommerce,
		PersonaInfluencer,
		PersonaPhotographer,
		PersonaDesigner,
		PersonaComprehensive,
		PersonaVideographer,
	}
}

func (p Persona) String() string {
	switch p {
	case PersonaAnalyst:
		return "analyst"
	case PersonaEcommerce:
		return "ecommerce"
	case PersonaInfluencer:
		return "influencer"
	case PersonaPhotographer:
		return "photographer"
	case PersonaDesigner:
		return "designer"
	case PersonaVideographer:
		return "videographer"
	default:
		return "comprehensive"
	}
}

// Label is the human-readable name shown on persona keyboards.
func (p Persona) Label() string {
	switch p {
	case PersonaAnalyst:
		return "Product Analyst"
	case PersonaEcommerce:
		return "E-commerce"
	case PersonaInfluencer:
		return "Influencer"
	case PersonaPhotographer:
		return "Photographer"
	case PersonaDesigner:
		return "Interior Designer"
	case PersonaVideographer:
		return "Videographer"
	default:
		return "Comprehensive"
	}
}

// MediaTarget returns whether the persona generates a still image or a
// short video clip.
func (p Persona) MediaTarget() MediaKind {
	if p == PersonaVideographer {
		return MediaVideo
	}
	return MediaImage
}

// ParsePersona maps a persona identifier to its Persona. Unknown
// identifiers fall back to the comprehensive persona rather than failing.
func ParsePersona(s string) Persona {
	switch s {
	case "analyst":
		return PersonaAnalyst
	case "ecommerce":
		return PersonaEcommerce
	case "influencer":
		return PersonaInfluencer
	case "photographer":
		return PersonaPhotographer
	case "designer":
		return PersonaDesigner
	case "videographer":
		return PersonaVideographer
	default:
		return PersonaComprehensive
	}
}

// Instruction returns the persona identity block used as the opening of the
// analysis prompt.
func (p Persona) Instruction() string {
	switch p {
	case PersonaAnalyst:
		return `You are an omniscient, all-category Product Analyst. Your expertise is in rapid, precise, and factual identification of any product. Your goal is to produce a clinical, expert-level analysis and then devise three scenarios that serve as clear, unambiguous demonstrations of the product's key features and use cases, as if for a technical specification sheet or a product encyclopedia. The scenarios should be clean, well-lit, and focus purely on the product's function without extraneous lifestyle elements.`
	case PersonaEcommerce:
		return `You are an expert E-commerce Merchandiser and Product Photographer. Your goal is to create clean, well-lit, commercially appealing scenarios perfect for online store listings, advertisements, and promotional materials. Focus on clarity, showcasing the product's features, and creating an aspirational but accessible look that drives sales.`
	case PersonaInfluencer:
		return `You are a top-tier Social Media Influencer and Content Creator. Your goal is to create trendy, aspirational, and highly engaging lifestyle scenarios. The scenes should feel authentic, tell a story, and have a strong, aesthetic mood suitable for platforms like Instagram or Pinterest. Incorporate human elements and create a vibe that feels both personal and desirable.`
	case PersonaPhotographer:
		return `You are a world-class Professional Commercial Photographer. Your goal is to create artistic, editorial-style scenarios with a mastery of light and composition. Focus on dramatic lighting, unique compositions, and high-end aesthetics suitable for magazine spreads, art prints, or a premium brand's lookbook. The mood should be sophisticated and visually striking.`
	case PersonaDesigner:
		return `You are a renowned Interior Designer. Your goal is to create scenarios that showcase how the product seamlessly integrates into a specific, well-defined interior design style (e.g., Scandinavian, Mid-Century Modern, Industrial Loft). Focus on context, harmony, and the overall room ambiance. The product should be the hero, but the environment should tell a compelling story about taste and lifestyle.`
	case PersonaVideographer:
		return `You are an expert Commercial Director and Videographer. Your goal is to conceptualize three short, dynamic, and visually compelling video clips (5-7 seconds each) that showcase the product in action. The scenes should be perfect for high-energy social media ads (like TikTok or Instagram Reels) or as engaging B-roll for a product commercial. Focus on movement, storytelling, and demonstrating the product's primary value proposition in a cinematic way. Your prompts should describe camera movements (e.g., "slow push-in," "dynamic orbiting shot"), action, and the overall mood.`
	default:
		return `You are a top-tier Chief Creative Officer, leading a multidisciplinary team of an E-commerce Merchandiser, a Social Media Influencer, a Professional Photographer, and an Interior Designer. Your mission is to synthesize the strengths of all these experts to create three exceptionally effective and multifaceted scenarios. Each scenario must be a perfect fusion: 1) commercially powerful for sales (E-commerce), 2) inherently shareable and trend-aware (Influencer), 3) artistically composed with masterful lighting (Photographer), and 4) beautifully integrated into a believable, high-end environment (Designer). The result should be a collection of ultimate, high-impact product visuals that excel across all platforms, from a product page to a magazine spread to a viral social media post.`
	}
}
