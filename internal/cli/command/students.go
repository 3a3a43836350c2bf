package command

import (
	"encoding/json"

	"github.com/urfave/cli/v2"
)

const signInMutation = `mutation SignIn($login: String!, $password: String!) {
  signIn(login: $login, password: $password) { token }
}`

const studentsQuery = `query Students($limit: Int, $offset: Int, $school: String, $gradeLevel: String) {
  students(limit: $limit, offset: $offset, school: $school, gradeLevel: $gradeLevel) {
    id fullName school gradeLevel ellStatus teacher active createdAt
  }
}`

// SignInCommand exchanges credentials for a session token.
func SignInCommand() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "sign in and print the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "login", Usage: "email address", Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"ELLY_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			resp, err := newClient(c).Query(c.Context, signInMutation, map[string]any{
				"login":    c.String("login"),
				"password": c.String("password"),
			})
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			_, err = c.App.Writer.Write([]byte(resp.Get("signIn.token").String() + "\n"))
			return err
		},
	}
}

// Student is the students table row.
type Student struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	School     string `json:"school"`
	GradeLevel string `json:"gradeLevel"`
	EllStatus  string `json:"ellStatus"`
	Teacher    string `json:"teacher" table:"wide"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"createdAt" table:"wide"`
}

// StudentsCommand lists students.
func StudentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "students",
		Usage: "list students (requires --token)",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.IntFlag{Name: "offset"},
			&cli.StringFlag{Name: "school"},
			&cli.StringFlag{Name: "grade"},
		},
		Action: func(c *cli.Context) error {
			vars := map[string]any{"limit": c.Int("limit"), "offset": c.Int("offset")}
			if s := c.String("school"); s != "" {
				vars["school"] = s
			}
			if g := c.String("grade"); g != "" {
				vars["gradeLevel"] = g
			}
			resp, err := newClient(c).Query(c.Context, studentsQuery, vars)
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			var rows []Student
			if err := json.Unmarshal([]byte(resp.Get("students").Raw), &rows); err != nil {
				return err
			}
			return render(c, rows)
		},
	}
}
