package conversation

import (
	"fmt"
	"strings"

	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/service/intent"
)

const (
	msgSlotChosen      = "👍 تم اختيار الموعد! الآن أرسل اسمك:"
	msgSlotPrompt      = "📅 اختر الموعد المناسب لك:"
	msgNameTooShort    = "🌸 اكتب اسمك الكامل لو سمحت:"
	msgNameUnclear     = "🙂 الاسم غير واضح. مثال: أحمد خالد، سارة محمد"
	msgNameAccepted    = "📱 تمام! الآن أرسل رقم الجوال:"
	msgResumeName      = "نكمّل الحجز 😊 أرسل اسمك:"
	msgResumePhone     = "نكمّل الحجز 📱 أرسل رقم الجوال:"
	msgResumeService   = "نكمّل الحجز 💊 اختر الخدمة:"
	msgPhoneAccepted   = "💊 اختر الخدمة من القائمة 👇"
	msgServiceUnknown  = "❓ لم أفهم الخدمة المطلوبة.\nاختر من القائمة 👇"
	msgStartFirst      = "⚠️ يجب بدء الحجز أولاً قبل اختيار الخدمة."
	msgPhoneFirst      = "⚠️ يرجى إدخال رقم الجوال قبل اختيار الخدمة."
	msgBookingFailed   = "⚠️ تعذر حفظ الحجز حالياً. حاول مرة أخرى لاحقاً."
	msgCancelPrompt    = "📌 أرسل رقم الجوال المستخدم بالحجز لإلغاء الموعد."
	msgCancelInvalid   = "⚠️ رقم الجوال غير صحيح. أرسل الرقم بدون مسافات:"
	msgCancelNotFound  = "❌ لا يوجد حجز مرتبط بهذا الرقم."
	msgCancelFailed    = "⚠️ حدث خطأ أثناء الإلغاء. حاول لاحقًا."
	msgGenericError    = "عذراً، حدث خطأ. حاول مرة أخرى."
	msgVoiceNotHeard   = "لم أفهم، حاول مرة أخرى."
	msgServiceListHead = "💊 اختر الخدمة المطلوبة"
	msgServiceListBody = "اختر نوع الخدمة من القائمة:"
	msgServiceListBtn  = "عرض الخدمات"
	msgServiceVoice    = "اختر الخدمة: فحص عام، تنظيف الأسنان، تبييض الأسنان، حشو الأسنان، علاج الجذور، التركيبات، تقويم الأسنان، خلع الأسنان، زراعة الأسنان، أو ابتسامة هوليود."
	msgServiceFallback = "💊 اختر الخدمة: فحص عام، تنظيف، تبييض، حشو، علاج جذور، تركيبات، تقويم، خلع، زراعة، أو ابتسامة هوليود."
)

var greetings = map[intent.Lang][]string{
	intent.English: {
		"👋 Hello! Welcome to *%s*! How can I assist you today?",
		"Hi there! 😊 How can I help you book an appointment or learn more about our services?",
		"Welcome to *%s*! How can I support you today?",
		"Hey! 👋 Glad to see you at *%s*! What can I do for you today?",
		"✨ Hello and welcome to *%s*! Are you interested in our offers or booking a visit?",
		"Good day! 💚 How can I assist you with your dental needs today?",
		"😊 Hi! You've reached *%s*, your smile is our priority!",
		"👋 Hello there! Would you like to see our latest offers or book an appointment?",
		"Welcome! 🌸 How can I help you take care of your smile today?",
		"💬 Hi! How can I help you find the right service or offer at *%s*?",
	},
	intent.Arabic: {
		"👋 أهلاً وسهلاً في *%s*! كيف يمكنني مساعدتك اليوم؟",
		"مرحباً بك في عيادتنا 💚 هل ترغب بحجز موعد أو الاستفسار عن خدمة؟",
		"أهلاً بك 👋 يسعدنا تواصلك مع *%s*، كيف نقدر نخدمك اليوم؟",
		"🌸 حيّاك الله! وش أكثر خدمة حاب تستفسر عنها اليوم؟",
		"✨ أهلاً وسهلاً! هل ترغب بالتعرف على عروضنا أو حجز موعد؟",
		"💚 يسعدنا تواصلك مع *%s*! كيف ممكن نساعدك اليوم؟",
		"😊 مرحباً بك! تقدر تسأل عن أي خدمة أو عرض متوفر حالياً.",
		"👋 أهلين وسهلين فيك! وش الخدمة اللي حاب تعرف عنها أكثر؟",
		"🌷 يا مرحبا! كيف نقدر نساعدك اليوم في *%s*؟",
		"💬 أهلاً بك! هل ترغب بحجز موعد أو الاطلاع على عروضنا الحالية؟",
	},
}

func greeting(lang intent.Lang, clinic string, pick func(int) int) string {
	options := greetings[lang]
	tpl := options[pick(len(options))]
	if strings.Contains(tpl, "%s") {
		return fmt.Sprintf(tpl, clinic)
	}
	return tpl
}

func banWarning(lang intent.Lang) string {
	if lang == intent.English {
		return "⚠️ Please keep the conversation respectful. We are happy to help with bookings and questions."
	}
	return "⚠️ نرجو الالتزام بأسلوب محترم في المحادثة. يسعدنا مساعدتك في الحجز أو الاستفسار."
}

func phoneInvalid(example string) string {
	return "⚠️ رقم الجوال غير صحيح.\nمثال: " + example
}

func slotFallback(slots []string) string {
	return "📅 أرسل الوقت المناسب لك: " + strings.Join(slots, "، ")
}

func slotVoicePrompt(slots []string) string {
	return "اختر موعدك: " + strings.Join(slots, "، ") + ". أرسل الوقت المناسب لك."
}

func bookingConfirmation(b models.Booking) string {
	return fmt.Sprintf("✅ تم تأكيد حجزك بنجاح 🎉\n👤 الاسم: %s\n📱 الجوال: %s\n💊 الخدمة: %s\n📅 الموعد: %s",
		b.Name, b.Phone, b.Service, b.Appointment)
}

func cancellationSummary(b models.Booking) string {
	return fmt.Sprintf("🟣 تم إلغاء الحجز:\n👤 %s\n💊 %s\n📅 %s", b.Name, b.Service, b.Appointment)
}

func offersTeaser(lang intent.Lang) string {
	if lang == intent.English {
		return "🎁 We have special offers valid until the end of this month! Would you like me to send them? (yes / no)"
	}
	return "🎁 لدينا عروض خاصة سارية حتى نهاية الشهر! هل ترغب أن أرسلها لك؟"
}

func offersIntro(lang intent.Lang) string {
	if lang == intent.English {
		return "💊 Here are our current offers and services:"
	}
	return "💊 هذه عروضنا وخدماتنا الحالية:"
}

func doctorsIntro(lang intent.Lang) string {
	if lang == intent.English {
		return "👨‍⚕️ Meet our professional medical team:"
	}
	return "👨‍⚕️ تعرف على فريقنا الطبي المتخصص:"
}

func bookingButtonBody(lang intent.Lang) string {
	if lang == intent.English {
		return "📅 Ready to book your appointment? Click the button below to start!"
	}
	return "📅 جاهز لحجز موعدك؟ اضغط على الزر بالأسفل للبدء!"
}

func bookingButtonTitle(lang intent.Lang) string {
	if lang == intent.English {
		return "Start Booking"
	}
	return "بدء الحجز"
}

func locationText(lang intent.Lang, clinic, address, mapsURL string) string {
	var b strings.Builder
	if lang == intent.English {
		fmt.Fprintf(&b, "📍 %s location", clinic)
	} else {
		fmt.Fprintf(&b, "📍 موقع %s", clinic)
	}
	if address != "" {
		b.WriteString("\n" + address)
	}
	if mapsURL != "" {
		b.WriteString("\n🗺️ " + mapsURL)
	}
	return b.String()
}
