package messaging_test

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/frahmantamala/client-portal/internal"
	messageDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/message"
	"github.com/frahmantamala/client-portal/internal/messaging"
	messagingPostgres "github.com/frahmantamala/client-portal/internal/messaging/postgres"
	"github.com/frahmantamala/client-portal/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Messaging Service", func() {
	var (
		db      *gorm.DB
		service *messaging.Service
		admin   *session.Session
		jane    *messaging.Conversation
		bob     *messaging.Conversation
	)

	seed := func(convID int64, id int64, sender, text string, parent *int64, read bool, minute int) {
		m := messaging.MessageToDataModel(&messaging.Message{
			ID:             id,
			ConversationID: convID,
			SenderID:       sender,
			Text:           text,
			ParentID:       parent,
			Read:           read,
			SentAt:         msg(id, nil, minute).SentAt,
		})
		Expect(db.Create(m).Error).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&messageDatamodel.Conversation{}, &messageDatamodel.Message{})).To(Succeed())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = messaging.NewService(messagingPostgres.NewMessageRepository(db), slogger)
		admin = session.Default()

		jane, err = service.StartConversation(admin, messaging.StartConversationDTO{
			Counterpart: messaging.Counterpart{ID: "2", Name: "Jane Smith", Role: "client"},
		})
		Expect(err).NotTo(HaveOccurred())
		bob, err = service.StartConversation(admin, messaging.StartConversationDTO{
			Counterpart: messaging.Counterpart{ID: "3", Name: "Bob Johnson", Role: "client"},
		})
		Expect(err).NotTo(HaveOccurred())

		seed(jane.ID, 1, "2", "Hi, I have a question about the project timeline.", nil, true, 0)
		seed(jane.ID, 2, "1", "Of course! What would you like to know?", ptr(1), true, 5)
		seed(bob.ID, 5, "3", "Could you review the latest documents I sent?", nil, false, 1)
	})

	Describe("ListConversations", func() {
		It("reports the last message and unread count", func() {
			list, err := service.ListConversations(admin, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))

			byName := map[string]messaging.ConversationSummary{}
			for _, c := range list {
				byName[c.With.Name] = c
			}
			Expect(byName["Bob Johnson"].Unread).To(Equal(int64(1)))
			Expect(byName["Jane Smith"].Unread).To(BeZero())
			Expect(byName["Jane Smith"].LastMessage).To(HavePrefix("Of course!"))
		})

		It("searches counterpart names case-insensitively", func() {
			list, err := service.ListConversations(admin, "  JANE ")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].With.Name).To(Equal("Jane Smith"))
		})

		It("hides other users' conversations", func() {
			other := session.New("8", "Other", "", "client", []string{session.PermViewMessages}, session.AccessNone)
			list, err := service.ListConversations(other, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())

			_, err = service.GetThread(other, jane.ID)
			Expect(errors.Is(err, internal.ErrConversationNotFound)).To(BeTrue())
		})

		It("requires view_messages", func() {
			nobody := session.New("8", "Other", "", "client", nil, session.AccessNone)
			_, err := service.ListConversations(nobody, "")
			Expect(errors.Is(err, internal.ErrPermissionDenied)).To(BeTrue())
		})
	})

	Describe("Send", func() {
		It("rejects empty and whitespace-only text", func() {
			for _, text := range []string{"", "   \n\t"} {
				_, err := service.Send(admin, jane.ID, messaging.SendMessageDTO{Text: text})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			}
		})

		It("rejects text over the length limit", func() {
			_, err := service.Send(admin, jane.ID, messaging.SendMessageDTO{Text: strings.Repeat("a", 5001)})
			Expect(err).To(HaveOccurred())
		})

		It("attaches a reply to a reply under the thread root", func() {
			m, err := service.Send(admin, jane.ID, messaging.SendMessageDTO{Text: "Following up", ParentID: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
			Expect(*m.ParentID).To(Equal(int64(1)))

			thread, err := service.GetThread(admin, jane.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(thread.Messages).To(HaveLen(3))
			for _, e := range thread.Messages {
				Expect(e.Depth).To(BeNumerically("<=", 1))
			}
			Expect(thread.Messages[2].Text).To(Equal("Following up"))
		})

		It("rejects a parent from another conversation", func() {
			_, err := service.Send(admin, jane.ID, messaging.SendMessageDTO{Text: "hi", ParentID: ptr(5)})
			Expect(errors.Is(err, internal.ErrMessageNotFound)).To(BeTrue())
		})

		It("moves the conversation to the top of the list", func() {
			_, err := service.Send(admin, bob.ID, messaging.SendMessageDTO{Text: "On it"})
			Expect(err).NotTo(HaveOccurred())

			list, err := service.ListConversations(admin, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list[0].ID).To(Equal(bob.ID))
			Expect(list[0].LastMessage).To(Equal("On it"))
		})
	})

	Describe("MarkRead and UnreadTotal", func() {
		It("clears unread messages from the counterpart", func() {
			total, err := service.UnreadTotal(admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))

			n, err := service.MarkRead(admin, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			total, err = service.UnreadTotal(admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
		})
	})
})
