package mysql

// Reads the reviews table written by the scoring backend; %s is the
// validated table name. Insertion order is primary key order.
const listReviewsSQL = "SELECT id, predicted_score, cleaned_text FROM `%s` ORDER BY id"

const insertReviewSQL = "INSERT INTO `%s` (cleaned_text, predicted_score, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)"

const createReviewsTableSQL = "CREATE TABLE IF NOT EXISTS `%s` (\n" +
	"  id              BIGINT AUTO_INCREMENT PRIMARY KEY,\n" +
	"  cleaned_text    TEXT NOT NULL,\n" +
	"  predicted_score INT NOT NULL,\n" +
	"  created_at      DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)\n" +
	") CHARACTER SET utf8mb4"
