package intent

var greetingKeywords = []string{
	"hi", "hello", "hey", "morning", "evening", "good", "welcome",
	"هلا", "مرحبا", "السلام", "اهلا", "أهلاً", "اهلين", "هاي", "شلونك", "صباح", "مساء",
}

var locationKeywords = []string{
	"location", "where", "address", "maps",
	"موقع", "مكان", "عنوان", "وين", "فين", "أين", "وينكم", "فينكم",
}

var offersKeywords = []string{
	"offer", "offers", "discount", "deal",
	"عروض", "عرض", "خصم", "خصومات", "تخفيض", "باقات", "باكيج", "بكج",
}

var offersConfirmationKeywords = []string{
	"yes", "ok", "send", "show",
	"ارسل", "رسل", "ابي", "ابغى", "نعم", "ايه", "ايوه",
}

var doctorsKeywords = []string{
	"doctor", "doctors", "dr",
	"الأطباء", "اطباء", "أطباء", "الدكاترة", "دكاترة", "دكتور", "طبيب", "طاقم طبي", "فريق طبي",
}

var bookingKeywords = []string{
	"book", "booking", "appointment", "reserve",
	"حجز", "احجز", "موعد", "ابي احجز", "ابغى احجز",
}

var cancelKeywords = []string{
	"cancel", "cancel booking", "cancel appointment",
	"الغاء", "إلغاء", "الغي", "الغاء الحجز", "إلغاء الحجز", "كنسل", "ابغى الغي", "ابي الغي", "ما بدي الموعد", "غيرت رأيي",
}

var resetKeywords = []string{
	"reset", "restart", "start over", "/start", "menu",
	"ابدأ من جديد", "ابدا من جديد", "من جديد", "من البداية", "القائمة الرئيسية",
}

var bannedKeywords = []string{
	"fuck", "shit", "bitch", "idiot", "stupid",
	"كلب", "حمار", "غبي", "حقير", "تافه", "زبالة",
}

// Interrogatives are matched as whole tokens so that names such as "نهلة"
// are not mistaken for the particle "هل".
var questionWords = []string{
	"كم", "ليش", "هل", "شو", "متى", "كيف", "ليه", "وش", "ايش",
	"price", "how", "why", "when", "what", "where", "who",
}
