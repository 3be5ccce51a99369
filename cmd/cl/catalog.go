package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"courseline/internal/domain"
	"courseline/internal/engine"
	"courseline/internal/engine/lifecycle"
)

func categoryCmd() *cobra.Command {
	cat := &cobra.Command{Use: "category", Short: "Manage course categories (admins)"}

	cat.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ domain.Principal) error {
				items, err := e.ListCategories(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Description")
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Description})
				}
				tw.Render()
				return nil
			})
		},
	})

	var in engine.CategoryInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				c, err := e.CreateCategory(ctx, p, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "name")
	create.Flags().StringVar(&in.Description, "description", "", "description")
	_ = create.MarkFlagRequired("name")
	cat.AddCommand(create)

	cat.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category and detach it from courses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.DeleteCategory(ctx, p, args[0])
			})
		},
	})
	return cat
}

func courseCmd() *cobra.Command {
	course := &cobra.Command{
		Use:   "course",
		Short: "Manage courses",
		Long:  "Courses are owned by the instructor who created them. New courses start as Draft; 'course status' publishes or archives them, cascading to published sections and lessons.",
	}
	course.AddCommand(courseListCmd())
	course.AddCommand(courseShowCmd())
	course.AddCommand(courseCreateCmd())
	course.AddCommand(courseUpdateCmd())
	course.AddCommand(courseDeleteCmd())
	course.AddCommand(courseStatusCmd())
	return course
}

func courseListCmd() *cobra.Command {
	var q engine.CourseQuery
	var minRating float64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min-rating") {
				q.MinRating = &minRating
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				page, err := e.ListCourses(ctx, p, q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(page)
				}
				tw := newTable("ID", "Title", "Status", "Price", "Instructor", "Rating", "Reviews", "Sections")
				for _, c := range page.Items {
					tw.AppendRow(table.Row{c.ID, c.Title, c.Status, c.Price.StringFixed(2), c.InstructorID, fmt.Sprintf("%.1f", c.AverageRating), c.ReviewCount, c.SectionCount})
				}
				tw.AppendFooter(table.Row{"", fmt.Sprintf("page %d", page.Page), "", "", "", "", "total", page.Total})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "title/description search")
	cmd.Flags().StringVar(&q.CategoryID, "category", "", "category id")
	cmd.Flags().StringVar(&q.InstructorID, "instructor", "", "instructor id")
	cmd.Flags().Float64Var(&minRating, "min-rating", 0, "minimum average rating")
	cmd.Flags().StringVar(&q.SortBy, "sort", "", "sort key: title, price, created, rating")
	cmd.Flags().BoolVar(&q.Desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 0, "page size (config default when 0)")
	return cmd
}

func courseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a course outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				c, err := e.GetCourse(ctx, p, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				printOutline(c)
				return nil
			})
		},
	}
}

func courseCreateCmd() *cobra.Command {
	var in engine.CourseInput
	var price string
	var weeks int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft course owned by --actor-id",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parsePrice(price)
			if err != nil {
				return err
			}
			in.Price = d
			in.DurationWeeks = optionalInt(cmd, "weeks", weeks)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				c, err := e.CreateCourse(ctx, p, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&price, "price", "0", "price")
	cmd.Flags().IntVar(&weeks, "weeks", 0, "duration in weeks")
	cmd.Flags().StringVar(&in.ImageURL, "image-url", "", "image url")
	cmd.Flags().StringArrayVar(&in.CategoryIDs, "category", []string{}, "category id (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func courseUpdateCmd() *cobra.Command {
	var title, description, price, imageURL string
	var weeks int
	var categories []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update course fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := engine.CourseUpdate{
				Title:         optionalString(cmd, "title", title),
				Description:   optionalString(cmd, "description", description),
				ImageURL:      optionalString(cmd, "image-url", imageURL),
				DurationWeeks: optionalInt(cmd, "weeks", weeks),
			}
			if cmd.Flags().Changed("price") {
				d, err := parsePrice(price)
				if err != nil {
					return err
				}
				upd.Price = &d
			}
			if cmd.Flags().Changed("category") {
				upd.CategoryIDs = &categories
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				c, err := e.UpdateCourse(ctx, p, args[0], upd)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&price, "price", "", "price")
	cmd.Flags().IntVar(&weeks, "weeks", 0, "duration in weeks")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "image url")
	cmd.Flags().StringArrayVar(&categories, "category", []string{}, "category id (repeatable, replaces the set)")
	return cmd
}

func courseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a course with all of its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.DeleteCourse(ctx, p, args[0])
			})
		},
	}
}

func courseStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <Draft|Published|Archived>",
		Short: "Change course status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				plan, err := e.UpdateCourseStatus(ctx, p, args[0], args[1])
				if err != nil {
					return err
				}
				return printPlan(plan)
			})
		},
	}
}

func sectionCmd() *cobra.Command {
	sec := &cobra.Command{Use: "section", Short: "Manage ordered course sections"}

	sec.AddCommand(&cobra.Command{
		Use:   "list <course-id>",
		Short: "List visible sections in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				items, err := e.GetSections(ctx, p, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Order", "ID", "Title", "Status", "Lessons")
				for _, s := range items {
					tw.AppendRow(table.Row{s.Order, s.ID, s.Title, s.Status, len(s.Lessons)})
				}
				tw.Render()
				return nil
			})
		},
	})

	var title string
	var order int
	add := &cobra.Command{
		Use:   "add <course-id>",
		Short: "Insert a section; omitting --order appends it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.SectionInput{Title: title, Order: optionalInt(cmd, "order", order)}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				s, err := e.CreateSection(ctx, p, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "title")
	add.Flags().IntVar(&order, "order", 0, "zero-based position")
	_ = add.MarkFlagRequired("title")
	sec.AddCommand(add)

	var newTitle string
	var to int
	update := &cobra.Command{
		Use:   "update <course-id> <section-id>",
		Short: "Rename or move a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := engine.SectionUpdate{Title: optionalString(cmd, "title", newTitle), Order: optionalInt(cmd, "order", to)}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				s, err := e.UpdateSection(ctx, p, args[0], args[1], upd)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	update.Flags().StringVar(&newTitle, "title", "", "title")
	update.Flags().IntVar(&to, "order", 0, "zero-based position")
	sec.AddCommand(update)

	sec.AddCommand(&cobra.Command{
		Use:   "delete <course-id> <section-id>",
		Short: "Delete a section and close the gap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.DeleteSection(ctx, p, args[0], args[1])
			})
		},
	})

	sec.AddCommand(&cobra.Command{
		Use:   "status <course-id> <section-id> <status>",
		Short: "Change section status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				plan, err := e.UpdateSectionStatus(ctx, p, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return printPlan(plan)
			})
		},
	})
	return sec
}

func lessonCmd() *cobra.Command {
	les := &cobra.Command{Use: "lesson", Short: "Manage ordered lessons of a section"}

	les.AddCommand(&cobra.Command{
		Use:   "list <section-id>",
		Short: "List visible lessons in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				items, err := e.GetLessonsBySection(ctx, p, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Order", "ID", "Title", "Status", "Blocks")
				for _, l := range items {
					tw.AppendRow(table.Row{l.Order, l.ID, l.Title, l.Status, len(l.Blocks)})
				}
				tw.Render()
				return nil
			})
		},
	})

	var title string
	var order int
	var texts []string
	add := &cobra.Command{
		Use:   "add <section-id>",
		Short: "Insert a lesson; each --text becomes a Text block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.LessonInput{Title: title, Order: optionalInt(cmd, "order", order)}
			for i, text := range texts {
				in.Blocks = append(in.Blocks, domain.ContentBlock{Order: i, Content: domain.TextContent{Text: text}})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				l, err := e.CreateLesson(ctx, p, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "title")
	add.Flags().IntVar(&order, "order", 0, "zero-based position")
	add.Flags().StringArrayVar(&texts, "text", []string{}, "text block (repeatable)")
	_ = add.MarkFlagRequired("title")
	les.AddCommand(add)

	var newTitle string
	var to int
	update := &cobra.Command{
		Use:   "update <section-id> <lesson-id>",
		Short: "Rename or move a lesson",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := engine.LessonUpdate{Title: optionalString(cmd, "title", newTitle), Order: optionalInt(cmd, "order", to)}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				l, err := e.UpdateLesson(ctx, p, args[0], args[1], upd)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	update.Flags().StringVar(&newTitle, "title", "", "title")
	update.Flags().IntVar(&to, "order", 0, "zero-based position")
	les.AddCommand(update)

	les.AddCommand(&cobra.Command{
		Use:   "delete <section-id> <lesson-id>",
		Short: "Delete a lesson and close the gap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.DeleteLesson(ctx, p, args[0], args[1])
			})
		},
	})

	les.AddCommand(&cobra.Command{
		Use:   "status <section-id> <lesson-id> <status>",
		Short: "Change lesson status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				plan, err := e.UpdateLessonStatus(ctx, p, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return printPlan(plan)
			})
		},
	})
	return les
}

func blockCmd() *cobra.Command {
	blk := &cobra.Command{Use: "block", Short: "Manage ordered content blocks of a lesson"}

	var kind, text, videoURL, thumb, transcription string
	var minutes, order int
	add := &cobra.Command{
		Use:   "add <lesson-id>",
		Short: "Add a Text or Video block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseContentKind(kind)
			if err != nil {
				return err
			}
			var content domain.Content = domain.TextContent{Text: text}
			if k == domain.ContentVideo {
				content = domain.VideoContent{
					VideoURL:        videoURL,
					ThumbnailURL:    thumb,
					Transcription:   transcription,
					DurationMinutes: optionalInt(cmd, "minutes", minutes),
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				b, err := e.AddContentBlock(ctx, p, args[0], content, optionalInt(cmd, "order", order))
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	add.Flags().StringVar(&kind, "type", "Text", "block type: Text or Video")
	add.Flags().StringVar(&text, "text", "", "text body")
	add.Flags().StringVar(&videoURL, "video-url", "", "video url")
	add.Flags().StringVar(&thumb, "thumbnail-url", "", "thumbnail url")
	add.Flags().StringVar(&transcription, "transcription", "", "video transcription")
	add.Flags().IntVar(&minutes, "minutes", 0, "video duration in minutes")
	add.Flags().IntVar(&order, "order", 0, "zero-based position")
	blk.AddCommand(add)

	var to int
	move := &cobra.Command{
		Use:   "move <lesson-id> <block-id>",
		Short: "Move a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				b, err := e.UpdateContentBlock(ctx, p, args[0], args[1], engine.BlockUpdate{Order: &to})
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	move.Flags().IntVar(&to, "order", 0, "zero-based position")
	_ = move.MarkFlagRequired("order")
	blk.AddCommand(move)

	blk.AddCommand(&cobra.Command{
		Use:   "delete <lesson-id> <block-id>",
		Short: "Delete a block and close the gap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.DeleteContentBlock(ctx, p, args[0], args[1])
			})
		},
	})
	return blk
}

func enrollCmd() *cobra.Command {
	var userID string
	var drop bool
	cmd := &cobra.Command{
		Use:   "enroll <course-id>",
		Short: "Enroll a user (default --actor-id) in a published course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				target := userID
				if target == "" {
					target = p.UserID
				}
				if drop {
					return e.Unenroll(ctx, p, args[0], target)
				}
				en, err := e.Enroll(ctx, p, args[0], target)
				if err != nil {
					return err
				}
				return printJSONOrTable(en)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user to enroll")
	cmd.Flags().BoolVar(&drop, "drop", false, "remove the enrollment instead")
	return cmd
}

func reviewCmd() *cobra.Command {
	rev := &cobra.Command{Use: "review", Short: "Course reviews"}

	var page, pageSize int
	list := &cobra.Command{
		Use:   "list <course-id>",
		Short: "List reviews, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				res, err := e.ListReviews(ctx, p, args[0], page, pageSize)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := newTable("ID", "User", "Rating", "Comment", "Created")
				for _, rv := range res.Items {
					tw.AppendRow(table.Row{rv.ID, rv.UserID, strings.Repeat("*", rv.Rating), rv.Comment, rv.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&pageSize, "page-size", 0, "page size")
	rev.AddCommand(list)

	var in engine.ReviewInput
	add := &cobra.Command{
		Use:   "add <course-id>",
		Short: "Review a course as --actor-id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				rv, err := e.CreateReview(ctx, p, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(rv)
			})
		},
	}
	add.Flags().IntVar(&in.Rating, "rating", 0, "rating 1-5")
	add.Flags().StringVar(&in.Comment, "comment", "", "comment")
	_ = add.MarkFlagRequired("rating")
	rev.AddCommand(add)

	rev.AddCommand(&cobra.Command{
		Use:   "delete <course-id> <review-id>",
		Short: "Delete a review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.DeleteReview(ctx, p, args[0], args[1])
			})
		},
	})
	return rev
}

func dashboardCmd() *cobra.Command {
	var instructor bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the student (default) or instructor dashboard of --actor-id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				if instructor {
					d, err := e.InstructorDashboard(ctx, p)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(d)
					}
					tw := newTable("Course", "Status", "Enrollments", "Reviews", "Rating")
					for _, c := range d.Courses {
						tw.AppendRow(table.Row{c.Title, c.Status, c.EnrollmentCount, c.ReviewCount, fmt.Sprintf("%.1f", c.AverageRating)})
					}
					tw.AppendFooter(table.Row{"total", "", d.TotalEnrollments, d.TotalReviews, fmt.Sprintf("%.2f", d.AverageRating)})
					tw.Render()
					return nil
				}
				d, err := e.StudentDashboard(ctx, p)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				tw := newTable("Course", "Status", "Progress", "Enrolled")
				for _, en := range d.Enrollments {
					tw.AppendRow(table.Row{en.CourseTitle, en.CourseStatus, fmt.Sprintf("%d%%", en.ProgressPercentage), en.EnrolledAt})
				}
				tw.AppendFooter(table.Row{"completed", d.Completed, "", ""})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&instructor, "instructor", false, "show the instructor dashboard")
	return cmd
}

func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return d, nil
}

func printPlan(plan lifecycle.Plan) error {
	if viper.GetBool("json") {
		return printJSON(plan)
	}
	tw := newTable("Level", "ID", "From", "To")
	for _, c := range append([]lifecycle.Change{plan.Target}, plan.Cascade...) {
		tw.AppendRow(table.Row{c.Level, c.ID, c.From, c.To})
	}
	tw.Render()
	return nil
}

func printOutline(c domain.Course) {
	fmt.Fprintf(os.Stdout, "%s [%s] %s by %s\n", c.Title, c.Status, c.Price.StringFixed(2), c.InstructorID)
	for i, s := range c.Sections {
		lastSection := i == len(c.Sections)-1
		connector, prefix := "├── ", "│   "
		if lastSection {
			connector, prefix = "└── ", "    "
		}
		fmt.Fprintf(os.Stdout, "%s%d. %s [%s]\n", connector, s.Order, s.Title, s.Status)
		for j, l := range s.Lessons {
			lc := "├── "
			if j == len(s.Lessons)-1 {
				lc = "└── "
			}
			fmt.Fprintf(os.Stdout, "%s%s%d. %s [%s] (%d blocks)\n", prefix, lc, l.Order, l.Title, l.Status, len(l.Blocks))
		}
	}
}
