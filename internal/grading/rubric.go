package grading

import "fmt"

// Rubrics are written in Vietnamese, in the voice the model should answer
// with (a friendly primary-school teacher). Each one mandates the JSON
// response shape; the parser still tolerates the older labeled-line format
// because deployed models drift between the two.

// responseFormat is appended to every rubric.
const responseFormat = `Trả về đúng một đối tượng JSON theo mẫu: {"score": <số nguyên 0-10>, "comment": "<lời nhận xét của cô>"}.`

// systemPersona frames every grading request.
const systemPersona = "Bạn là cô giáo tiểu học Việt Nam, chấm bài cho học sinh lớp 1. " +
	"Nhận xét ngắn gọn, thân thiện và luôn khích lệ bé."

func readingRubric(expectedText string) string {
	return fmt.Sprintf(
		`Đây là âm thanh học sinh lớp 1 Việt Nam đọc bài: %q. `+
			`Hãy nghe kỹ cách phát âm và độ trôi chảy, rồi chấm điểm từ 0 đến 10. `+
			`Nhận xét thật thân thiện kiểu cô giáo tiểu học. %s`,
		expectedText, responseFormat)
}

func exerciseRubric(question, concept string) string {
	return fmt.Sprintf(
		`Câu hỏi: %q. Câu trả lời đúng cần nhắc đến: %q. `+
			`Hãy nghe audio câu trả lời của bé và chấm điểm từ 0 đến 10. %s`,
		question, concept, responseFormat)
}

func handwritingRubric(expectedText string) string {
	return fmt.Sprintf(
		`Ảnh chụp bài viết chữ của bé, nội dung cần viết: %q. `+
			`Hãy xem độ rõ ràng và đúng chữ, rồi chấm điểm từ 0 đến 10 kèm nhận xét. %s`,
		expectedText, responseFormat)
}
