package service

import (
	"fmt"
	"html"
	"strings"

	"rawdah/internal/model"
)

// ReminderService builds Arabic summaries of a day's progress: the mentor's
// system instruction and the periodic report.
type ReminderService struct{}

func NewReminderService() *ReminderService {
	return &ReminderService{}
}

func done(ok bool) string {
	if ok {
		return "تم"
	}
	return "لم يتم"
}

// StatusLines describes the progress in plain text, one section per line.
func (s *ReminderService) StatusLines(p model.DailyProgress) []string {
	prayers := make([]string, 0, len(model.PrayerKeys))
	for _, key := range model.PrayerKeys {
		st := p.Prayers[key]
		fard := "لم يؤد الفرض"
		if st.Fard {
			fard = "أدى الفرض"
		}
		sunnah := "لم يؤد السنة"
		if st.Sunnah {
			sunnah = "أدى السنة"
		}
		prayers = append(prayers, fmt.Sprintf("%s: %s، %s", key.DisplayName(), fard, sunnah))
	}

	notes := strings.TrimSpace(p.Study.Notes)
	if notes == "" {
		notes = "لا توجد ملاحظات"
	}

	return []string{
		"الصلوات: " + strings.Join(prayers, " | "),
		fmt.Sprintf("الأذكار: أذكار الصباح: %s | أذكار المساء: %s", done(p.Adhkar.Morning), done(p.Adhkar.Evening)),
		fmt.Sprintf("الدراسة: مراجعة الدروس: %s | المطالعة: %s", done(p.Study.Review), done(p.Study.Reading)),
		"ملاحظات الطالب الخاصة: " + notes,
	}
}

// SystemInstruction is the mentor persona seeded with the day's progress.
func (s *ReminderService) SystemInstruction(p model.DailyProgress) string {
	var b strings.Builder
	b.WriteString("أنت \"المرشد الأمين\"، صديق وموجه ذكي لطالب مسلم.\n\n")
	b.WriteString("شخصيتك:\n")
	b.WriteString("- تتحدث باللغة العربية بطلاقة، بأسلوب ودود ومشجع وبسيط.\n")
	b.WriteString("- تتصرف كأخ أكبر ناصح، يمزح أحياناً، وجاد في وقت الجد.\n")
	b.WriteString("- هدفك تحفيز الطالب على الصلاة والدراسة وذكر الله دون تأنيب قاسٍ.\n\n")
	fmt.Fprintf(&b, "حالة الطالب لهذا اليوم (%s):\n", p.Date)
	for _, line := range s.StatusLines(p) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\nتوجيهات المحادثة:\n")
	b.WriteString("- ردودك قصيرة ومباشرة.\n")
	b.WriteString("- استخدم الإيموجي بشكل مناسب 🕌📚✨.\n")
	b.WriteString("- إذا سألك الطالب عن شيء خارج الدين أو الدراسة، أجبه باختصار ثم اربط الموضوع بهدفه.\n")
	b.WriteString("- تذكر تفاصيل يومه المذكورة أعلاه في ردودك.\n")
	return b.String()
}

// DailySummary renders the progress as an HTML report message.
func (s *ReminderService) DailySummary(p model.DailyProgress) string {
	var b strings.Builder
	b.WriteString("📋 <b>تقرير اليوم</b>\n")
	fmt.Fprintf(&b, "🗓 %s\n\n", p.Date)

	b.WriteString("🕌 <b>الصلوات</b>\n")
	completed := 0
	for _, key := range model.PrayerKeys {
		st := p.Prayers[key]
		if st.Fard {
			completed++
		}
		fmt.Fprintf(&b, "%s %s · السنة %s\n", mark(st.Fard), key.DisplayName(), mark(st.Sunnah))
	}
	fmt.Fprintf(&b, "— %d/%d فروض\n", completed, len(model.PrayerKeys))

	b.WriteString("\n📿 <b>الأذكار</b>\n")
	fmt.Fprintf(&b, "%s الصباح  %s المساء\n", mark(p.Adhkar.Morning), mark(p.Adhkar.Evening))

	b.WriteString("\n📚 <b>الدراسة</b>\n")
	fmt.Fprintf(&b, "%s مراجعة الدروس  %s المطالعة\n", mark(p.Study.Review), mark(p.Study.Reading))
	if notes := strings.TrimSpace(p.Study.Notes); notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", html.EscapeString(notes))
	}

	return strings.TrimSpace(b.String())
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "⬜️"
}
