// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

//go:build integration

package integration

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/regdesk/regdesk/internal/auth"
	authpg "github.com/regdesk/regdesk/internal/auth/postgres"
	"github.com/regdesk/regdesk/internal/store"
	"github.com/regdesk/regdesk/internal/student"
	studentpg "github.com/regdesk/regdesk/internal/student/postgres"
)

type portalStack struct {
	authSvc    *auth.Service
	studentSvc *student.Service
	sessions   *auth.SessionStore
	repo       *studentpg.StudentRepository
	cleanup    func()
}

// setupPortal starts a PostgreSQL container, runs the migrations, and wires
// the full service stack against it.
func setupPortal() (*portalStack, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("regdesk_test"),
		postgres.WithUsername("regdesk"),
		postgres.WithPassword("regdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.DiscardHandler)
	pool, err := store.Connect(ctx, connStr, logger)
	if err != nil {
		return nil, err
	}

	studentRepo := studentpg.NewStudentRepository(pool)
	sessions, err := auth.NewSessionStore(authpg.NewSessionRepository(pool), logger)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewHasher()
	authSvc, err := auth.NewService(studentRepo, sessions, hasher, auth.AdminConfig{
		Username: "registrar",
		Password: "admin-secret",
	}, logger)
	if err != nil {
		return nil, err
	}

	studentSvc, err := student.NewService(studentRepo, hasher, authSvc, sessions, logger)
	if err != nil {
		return nil, err
	}

	stack := &portalStack{
		authSvc:    authSvc,
		studentSvc: studentSvc,
		sessions:   sessions,
		repo:       studentRepo,
		cleanup: func() {
			pool.Close()
			_ = container.Terminate(ctx)
		},
	}
	return stack, nil
}

func registerInput(registrationNumber, email, phone string) student.RegisterInput {
	return student.RegisterInput{
		StudentName:        "Asha Verma",
		RegistrationNumber: registrationNumber,
		RollNumber:         "42",
		PhoneNumber:        phone,
		Email:              email,
		Section:            "A4",
		Password:           "long-enough-password",
	}
}

var _ = Describe("Portal", func() {
	var stack *portalStack

	BeforeEach(func() {
		var err error
		stack, err = setupPortal()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		stack.cleanup()
	})

	Describe("registration and login", func() {
		It("registers a student and logs them in", func() {
			ctx := context.Background()

			record, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "asha@example.edu", "+919876543210"))
			Expect(err).NotTo(HaveOccurred())
			Expect(record.PasswordHash).To(HavePrefix("$argon2id$"))

			result, err := stack.authSvc.Login(ctx, "REG-2026-0042", "long-enough-password")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SubjectID).To(Equal(record.ID.String()))

			profile, err := stack.studentSvc.GetProfile(ctx, result.Token, record.ID.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Email).To(Equal("asha@example.edu"))
		})

		It("rejects duplicate registration numbers at the database", func() {
			ctx := context.Background()

			_, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "asha@example.edu", "+919876543210"))
			Expect(err).NotTo(HaveOccurred())

			_, err = stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "other@example.edu", "+919876543220"))
			Expect(err).To(MatchError(student.ErrDuplicate))
		})

		It("keeps only the newest session per student", func() {
			ctx := context.Background()

			record, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "asha@example.edu", "+919876543210"))
			Expect(err).NotTo(HaveOccurred())

			first, err := stack.authSvc.Login(ctx, "REG-2026-0042", "long-enough-password")
			Expect(err).NotTo(HaveOccurred())
			second, err := stack.authSvc.Login(ctx, "REG-2026-0042", "long-enough-password")
			Expect(err).NotTo(HaveOccurred())

			_, err = stack.studentSvc.GetProfile(ctx, first.Token, record.ID.String())
			Expect(err).To(HaveOccurred())

			_, err = stack.studentSvc.GetProfile(ctx, second.Token, record.ID.String())
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("legacy credential upgrade", func() {
		It("rewrites a legacy hash on successful login", func() {
			ctx := context.Background()

			id := ulid.Make()
			legacy := &student.Student{
				ID:                 id,
				StudentName:        "Ravi Kumar",
				RegistrationNumber: "REG-2019-0007",
				RollNumber:         "7",
				PhoneNumber:        "+919876543211",
				Email:              "ravi@example.edu",
				Section:            "B2",
				PasswordHash:       auth.LegacyHash("ravi-password-2019"),
				CreatedAt:          time.Now().UTC(),
				UpdatedAt:          time.Now().UTC(),
			}
			Expect(stack.repo.Create(ctx, legacy)).To(Succeed())

			_, err := stack.authSvc.Login(ctx, "REG-2019-0007", "ravi-password-2019")
			Expect(err).NotTo(HaveOccurred())

			// The upgrade write is synchronous with login.
			stored, err := stack.repo.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.PasswordHash).To(HavePrefix("$argon2id$"))

			// The new hash still verifies the same password.
			_, err = stack.authSvc.Login(ctx, "REG-2019-0007", "ravi-password-2019")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("admin console", func() {
		var adminToken string

		BeforeEach(func() {
			var err error
			adminToken, err = stack.authSvc.AdminLogin(context.Background(), "registrar", "admin-secret")
			Expect(err).NotTo(HaveOccurred())
		})

		It("lists, filters, and exports students", func() {
			ctx := context.Background()

			_, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "asha@example.edu", "+919876543210"))
			Expect(err).NotTo(HaveOccurred())

			records, err := stack.studentSvc.ListStudents(ctx, adminToken, student.Filter{Search: "asha"})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))

			records, err = stack.studentSvc.ListStudents(ctx, adminToken, student.Filter{Section: "A9"})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())

			var csv strings.Builder
			Expect(stack.studentSvc.ExportCSV(ctx, adminToken, student.Filter{}, &csv)).To(Succeed())
			Expect(csv.String()).To(ContainSubstring("REG-2026-0042"))
			Expect(csv.String()).NotTo(ContainSubstring("argon2id"))
		})

		It("deletes a student and revokes their session", func() {
			ctx := context.Background()

			record, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "asha@example.edu", "+919876543210"))
			Expect(err).NotTo(HaveOccurred())

			result, err := stack.authSvc.Login(ctx, "REG-2026-0042", "long-enough-password")
			Expect(err).NotTo(HaveOccurred())

			Expect(stack.studentSvc.DeleteStudent(ctx, adminToken, record.ID.String())).To(Succeed())

			_, err = stack.studentSvc.GetProfile(ctx, result.Token, record.ID.String())
			Expect(err).To(HaveOccurred())
		})

		It("bulk deletes and reports the count", func() {
			ctx := context.Background()

			first, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0042", "asha@example.edu", "+919876543210"))
			Expect(err).NotTo(HaveOccurred())
			second, err := stack.studentSvc.Register(ctx, registerInput("REG-2026-0043", "ravi@example.edu", "+919876543211"))
			Expect(err).NotTo(HaveOccurred())

			deleted, err := stack.studentSvc.DeleteStudents(ctx, adminToken, []string{
				first.ID.String(),
				second.ID.String(),
				ulid.Make().String(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(2)))
		})
	})

	Describe("session sweep", func() {
		It("reports zero when nothing has expired", func() {
			count, err := stack.sessions.Sweep(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})
