package hardening

// wordlist backs GenerateWordPassword: 256 short common words, giving
// exactly 8 bits of entropy per word.
var wordlist = []string{
	"acid", "acorn", "actor", "alarm", "album", "alert", "alley", "aloe",
	"amber", "angle", "ankle", "apple", "april", "apron", "arena", "armor",
	"arrow", "aspen", "atlas", "atom", "audio", "award", "bacon", "badge",
	"bagel", "baker", "bamboo", "banjo", "barn", "basil", "bass", "baton",
	"beach", "bead", "beak", "bean", "bear", "beet", "bell", "bench",
	"berry", "bike", "birch", "bird", "bison", "blade", "blaze", "blimp",
	"block", "bloom", "board", "boat", "bolt", "bone", "book", "boot",
	"bow", "bowl", "box", "brick", "bride", "brook", "broom", "brush",
	"bud", "bugle", "bulb", "bull", "bunny", "cabin", "cable", "cactus",
	"cake", "camel", "candle", "canoe", "cape", "card", "cargo", "carp",
	"cart", "cedar", "cello", "chair", "chalk", "charm", "chess", "chief",
	"chili", "chime", "chip", "cider", "cliff", "cloak", "clock", "cloud",
	"clove", "coach", "coal", "coast", "cobra", "cocoa", "coin", "comet",
	"coral", "cork", "corn", "cove", "crab", "crane", "crate", "creek",
	"crow", "crown", "cube", "cumin", "curve", "daisy", "deer", "delta",
	"denim", "dew", "dice", "dime", "dish", "dock", "dome", "dove",
	"draft", "drum", "duck", "dune", "dusk", "eagle", "easel", "echo",
	"elbow", "elk", "elm", "ember", "fable", "falcon", "fang", "fawn",
	"fern", "ferry", "field", "fig", "finch", "fjord", "flame", "flask",
	"fleet", "flint", "flute", "foam", "fog", "forge", "fox", "frost",
	"gale", "gate", "gear", "gem", "geyser", "gift", "glade", "glass",
	"glen", "globe", "gourd", "grain", "grape", "grass", "grove", "gull",
	"harbor", "harp", "hawk", "hazel", "heron", "hill", "hive", "holly",
	"horn", "husk", "iceberg", "inlet", "iris", "ivory", "ivy", "jade",
	"jar", "jet", "jewel", "jug", "kayak", "keel", "kelp", "kettle",
	"key", "kiln", "king", "kite", "knot", "lagoon", "lake", "lamp",
	"lark", "latch", "leaf", "ledge", "lemon", "lens", "lilac", "lily",
	"lime", "linen", "lion", "llama", "lotus", "lunar", "lynx", "maple",
	"marsh", "mask", "mast", "meadow", "melon", "mesa", "mint", "mole",
	"moose", "moss", "moth", "mountain", "mule", "oak", "oasis", "ocean",
	"olive", "onion", "opal", "orbit", "otter", "owl", "palm", "pearl",
	"pine", "plum", "pond", "quartz", "quill", "raven", "reef", "wren",
}
