package textgen

const systemPrompt = `You are a creative assistant for small business social media.
You help with brand setup, post ideas, image generation, captions and campaign planning.
Keep answers short and friendly. Never invent brand details the user has not given.`

const ideasPrompt = `Suggest %d distinct social media post ideas for this brand.
%s
Theme or request: %s
Answer with JSON only: {"ideas": ["...", "..."]}`

const captionPrompt = `Write an Instagram caption for the post described below.
%s
Post: %s
Image file: %s
Answer with JSON only: {"caption": "...", "hashtags": ["#...", "#..."]}. Use 5 to 10 hashtags.`

const campaignPrompt = `Plan week %d of %d of a social media campaign%s with %d posts this week.
%s
Extra request: %s
Answer with JSON only: {"theme": "...", "posts": [{"day": "Monday", "idea": "..."}]}`
