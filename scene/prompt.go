package scene

import (
	"fmt"
	"strings"
)

// The prompt is the schema enforcement mechanism: the analysis model is not
// schema-constrained at the API level, so every structural requirement the
// parser checks must be spelled out here as an explicit instruction.

const userContextTemplate = `The user has provided this crucial context about the product: "%s". Use this information as the primary source of truth for the product's identity and function. The image serves as the visual reference.`

const orientationStrict = `The product's **position in the frame and its scale relative to the frame** must be described to **identically match** the source image. The **camera's viewing angle** relative to the product must also be preserved. This is a strict requirement to ensure visual consistency.`

const orientationAdjustable = `The product's core appearance, scale, and recognizability must be preserved. However, you have creative license to make slight, logical adjustments to the product's orientation and camera angle to best integrate it into the new scene. For example, you can slightly rotate it or show it from a slightly different but still recognizable angle if it makes the scene more natural. The product must remain the clear focal point.`

// ScenarioTrailer is the literal sentence every scenario prompt must end
// with, grounding generation in the reference image.
const ScenarioTrailer = `Generate based on the reference product image.`

// NoTextSuffix is appended to user-typed prompts at generation time.
// Scenario prompts already embed the equivalent rule.
const NoTextSuffix = `. CRITICAL RULE: The final image must be completely free of any text, letters, numbers, labels, brands, or logos.`

const analysisPromptTemplate = `Your Identity: %s

%s

Your task is to act as a virtual product photography director. You will analyze the product in the image and generate three distinct, detailed, and hyper-realistic application scenarios for an advanced text-to-image generation model, all from the perspective of your assigned identity.

**Crucial Rule for Human Presence:** If the source image contains a person or parts of a person (e.g., hands, legs), you must **completely ignore them** in your analysis of the original image. Your generated scenarios should then feature a **new, different, and contextually appropriate** human presence interacting with the product. Do not attempt to replicate or describe the person from the source image.

Follow this process:
0.  **Product Identification via Web Search:** Before any other analysis, you **must** use your integrated search tool to analyze the product in the image. Search the web to identify its likely brand, official product name, and primary product category. This online research is your first and most crucial step to ensure you accurately understand the product's identity and function before proceeding.
1.  **Deconstruct and Analyze the Product Structure (Strict Fidelity Required):** Your first and most critical task is to meticulously deconstruct the product. **Combine the visual information from the image with the insights gained from your web search** to create your description. The image is the visual ground truth for appearance, but your search results provide the factual ground truth for identity. Your description must be a direct, factual report, with **no creative additions, assumptions, or embellishments beyond what is visually present and factually confirmed.** You must meticulously deconstruct the product into its primary structural components. For a complex item like a storage cart, this means identifying and listing each distinct part (e.g., 'the main white plastic frame', 'the four transparent plastic drawers', 'the gold-colored metal handles', 'the chrome support rods', 'the grey caster wheels'). For each identified component, you must provide a detailed analysis of its **specific material**, its **exact intrinsic color (describe the color as if under neutral white light, ignoring colored lighting or reflections from the environment; be extremely descriptive, e.g., "a warm, polished brass-gold with a slight satin finish" instead of just "gold")**, and its **surface texture**. Your final description must be decisive. Based on your web search and visual analysis, provide a single, confident product identification. **AVOID using ambiguous terms or alternative classifications like '... or ...'**. State what the product IS.
2.  **Analyze Composition and Framing:** Analyze the product's visual composition in the source image. Note its exact **position in the frame** (e.g., "centered horizontally, positioned in the bottom half of the image"), its **proportion/scale** (how much of the frame it occupies, e.g., "occupies approximately 60%% of the lower half of the frame"), and the precise **camera angle** (e.g., eye-level, low-angle shot, 45-degree angle from the front-left). This analysis is mandatory and must be reflected in your output.
3.  **Analyze and Replicate the Original Camera Settings:** This is a mandatory and critical step. Instead of inventing new settings, you must meticulously analyze the source image to **deduce the camera properties used to capture it.** Your goal is to replicate the original photo's perspective and depth of field to ensure the product's appearance is perfectly preserved.
    *   **Deduce Lens Focal Length:** Analyze the perspective compression and field of view. A natural, un-distorted look suggests a standard lens (e.g., 50mm, 85mm). A slightly compressed background suggests a telephoto lens. A very up-close, detailed shot of a small object suggests a macro lens (e.g., 100mm macro). State your deduced lens.
    *   **Deduce Aperture:** Analyze the depth of field. If the entire scene is sharp, a smaller aperture was used (e.g., f/8, f/11). If there's slight background softness but the product is fully in focus, a mid-range aperture might have been used (e.g., f/4, f/5.6). Your primary goal is to ensure the entire product is in focus, so deduce an aperture that achieves this, mirroring the source image.
    *   **This single, deduced camera setup will be the foundation for all generated scenarios.**
4.  **Synthesize the Master Product Description:** Based on your analysis in steps 0 and 1, synthesize the complete, multi-sentence paragraph that will become the value for the "product_description" key in the final JSON. This is your master description and the single source of truth for the product's appearance.
5.  **Generate Realistic Usage Scenarios (Persona-driven):** Based on your assigned identity and the detailed product analysis, create three **completely distinct and realistic** scenarios. Each scenario must place the product in a **brand-new, plausible usage environment** that is different from the one in the source image and aligns with your identity's goals. **All scenarios must strictly adhere to real-world logic. AVOID creating fantastical or surreal scenes.** The goal is to showcase the product in various authentic contexts. It is **critical to AVOID recreating the background or context from the original photo.**

For each scenario, you must craft a rich prompt that adheres to these strict guidelines:
1.  **Replicated Virtual Camera Setup:** Every prompt must begin with the single, deduced 'Virtual Camera' specification you determined in the analysis phase.
2.  **Absolute Product Fidelity - THE HIGHEST PRIORITY:** This is the most important rule. You **must** take the **entire master product description** you synthesized in Step 4 and use it directly as the core description of the product within your new scene. **Do not summarize, alter, or omit any details from this master description when describing the product.** You will build the new scene's description (the environment, lighting, contextual items, human interaction) *around* this verbatim product description. The product's entire design, structure, materials, colors, and textures are immutable and must not be altered.
3.  **Maintain Visual Framing and Orientation:** %s
4.  **Grounded & Hyper-realistic Scene with Contextual Items:** Describe a highly realistic and detailed application environment. The product must be the focal point but seamlessly integrated into a believable, "lived-in" space. It is **mandatory** to include several relevant, non-obstructing contextual items that one would naturally find in that setting. These items are crucial for creating a sense of realism. For example:
    *   For a kitchen storage unit: include a half-peeled lemon on a cutting board, a crumpled dish towel, and a ceramic bowl with fresh herbs.
    *   For an office chair: include a laptop on the desk with code on the screen, a half-empty coffee mug, and a stack of design books.
    Crucially, avoid overly clean, sterile, or perfectly staged environments. The scene must feel authentic and used.
5.  **CRITICAL - Showcase Product Functionality:** The scene MUST clearly and logically demonstrate the product's primary function. For example, if the product is a projector, it must be shown powered on and projecting a crisp, vibrant, and contextually appropriate image (like a movie scene or a presentation slide) onto a screen or wall. If it's a speaker, perhaps show subtle visual cues of sound or people enjoying music. The product must be depicted in an active state of use to clearly communicate its purpose and value.
6.  **Unobstructed Product View:** Any added items or people must not block or obscure any part of the product. The product must remain fully and clearly visible.
7.  **Elite Photographic Quality:** The final image must be **ultra-photorealistic, 4K UHD resolution, and hyper-detailed.** It should have the quality of a high-end commercial photograph for a premium brand, characterized by **vibrant colors, high dynamic range, and exceptional clarity.**
    *   **Lighting:** Describe lighting that is both natural and enhances the product, ensuring the scene is **bright, clear, and avoids any flat, grayish, or washed-out look.** Emphasize high contrast and clarity.
    *   **Focus & Sharpness:** The entire scene must be **tack sharp**, with every detail clearly visible. The product and its immediate surroundings should be perfectly in focus. **Strictly avoid any depth-of-field blur or bokeh effects.**
    *   **Aesthetic & Mood:** The goal is pure realism. The image must have professional-grade color grading for a clean, vibrant aesthetic. **Strictly avoid:** artificial digital filters, vignettes, lens flares, or unnatural color casts.
8.  **Realistic Human Presence (If Applicable):** Based on the product's function, it is **highly encouraged** to include a person interacting with the product naturally and logically. The depiction must be realistic and anatomically plausible. When describing actions, use clear, grammatically correct sentences. For example, instead of an awkward phrase like "a lady's manicured hand reaches...", prefer clearer constructions such as "a woman with manicured hands reaches..." or simply "a manicured hand reaches...". Avoid strange crops or incomplete body parts that look unnatural. If only a part of a person is shown (e.g., a hand), it must be framed naturally, such as 'a hand reaching for a book'. Any human presence must be unposed and contextually appropriate.
9.  **No Text or Logos - CRITICAL:** The resulting image must be completely free of any text, letters, numbers, labels, brands, or logos on any object or surface. This is a non-negotiable final instruction.
10. **Reference Instruction:** Each scenario prompt (both English and Chinese) must end with the literal phrase '%s'. This is a mandatory final instruction.

Finally, provide the output in a single JSON object. The object must have three keys: "product_description", "recommended_camera", and "scenarios".
- "product_description": An object with two keys: "english" and "chinese". The value for each key should be a string containing a comprehensive, multi-sentence paragraph that **must be in absolute, strict alignment with the product shown in the reference image.** This paragraph must begin with the product's function, then provide a detailed breakdown of its structure, describing each component's specific color, material, and texture **exactly as seen.** It must conclude by specifying the product's overall screen percentage and position in the original image. This description must be rich enough to allow a 3D artist to model the product accurately from text alone, **serving as a perfect textual mirror of the visual reference.**
- "recommended_camera": A string containing the full, deduced Virtual Camera setup (e.g., "(Virtual Camera: 85mm lens, f/8, 1/125s, ISO 100)").
- "scenarios": An array of three objects. Each object in the array must have two keys: "english" (the scenario prompt in English) and "chinese" (the same scenario prompt translated into Simplified Chinese).

Do not use any markdown formatting or any other text outside of the JSON object. Your entire response must be only the JSON.

Example JSON structure:
{
  "product_description": {
    "english": "This is a mobile four-tiered storage cart for home organization. The main frame is made of a durable, semi-gloss off-white plastic. It houses four fully transparent, hard plastic drawers. Each drawer features a rectangular handle made of warm, polished brass-gold metal. The entire structure is supported by four vertical rods of cool-toned, polished chrome metal. The cart is fitted with four small, neutral grey plastic caster wheels. In the source image, the cart occupies roughly 70%% of the frame's vertical height and is positioned slightly to the right of the center.",
    "chinese": "这是一个移动式四层储物车，用于家庭收纳。主框架由耐用的半光泽灰白色塑料制成。它包含四个完全透明的硬塑料抽屉。每个抽屉都有一个由温暖的抛光黄铜金色金属制成的矩形把手。整个结构由四根冷色调的抛光铬金属垂直杆支撑。储物车配有四个小巧的中性灰色塑料脚轮。在源图像中，该储物车约占画面垂直高度的70%%，位置略微偏向中心右侧。"
  },
  "recommended_camera": "(Virtual Camera: 50mm lens, f/8, 1/125s, ISO 100)",
  "scenarios": [
    {
      "english": "(Virtual Camera: 50mm lens, f/8, 1/125s, ISO 100) A photorealistic image of... %s",
      "chinese": "(虚拟相机: 50mm 镜头, f/8, 1/125s, ISO 100) 一张...的写实照片 %s"
    }
  ]
}`

// PromptInput carries everything that conditions the analysis instruction.
type PromptInput struct {
	Persona Persona
	// UserContext is the user-supplied product description, if any. When
	// non-empty it is declared the primary source of truth for the
	// product's identity, overriding visual guesswork.
	UserContext string
	// AllowAdjustments selects the adjustable orientation-fidelity mode
	// instead of the strict one.
	AllowAdjustments bool
}

// BuildAnalysisPrompt assembles the instruction text for the analysis call.
func BuildAnalysisPrompt(in PromptInput) string {
	var userContext string
	if ctx := strings.TrimSpace(in.UserContext); ctx != "" {
		userContext = fmt.Sprintf(userContextTemplate, ctx)
	}

	orientation := orientationStrict
	if in.AllowAdjustments {
		orientation = orientationAdjustable
	}

	return fmt.Sprintf(
		analysisPromptTemplate,
		in.Persona.Instruction(),
		userContext,
		orientation,
		ScenarioTrailer,
		ScenarioTrailer,
		ScenarioTrailer,
	)
}

// FinalPrompt computes the text actually sent to the media model. A prompt
// that exactly matches one of the current scenarios is already
// self-contained: it opens with the camera profile and embeds the no-text
// rule, so nothing is added. Anything else gets the camera profile
// prepended (image personas only) and the no-text constraint appended.
func FinalPrompt(prompt string, scenarios []Scenario, camera string, persona Persona) string {
	for _, s := range scenarios {
		if s.English == prompt {
			return prompt
		}
	}
	out := prompt
	if camera != "" && persona.MediaTarget() != MediaVideo {
		out = camera + " " + out
	}
	return out + NoTextSuffix
}
