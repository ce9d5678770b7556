package models

import "time"

// PullRequest is a summary of a pull request.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	IsDraft   bool      `json:"is_draft"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Issue is a summary of an issue.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	Comments  int       `json:"comments"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Release is a published release.
type Release struct {
	TagName      string    `json:"tag_name"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	IsPrerelease bool      `json:"is_prerelease"`
	PublishedAt  time.Time `json:"published_at"`
}

// WorkflowRun is one CI run.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Branch     string    `json:"branch"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	URL        string    `json:"url"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Commit is a commit of a repository's default branch.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	URL     string    `json:"url"`
	Date    time.Time `json:"date"`
}

// CommitList is the recent commits of a repository.
type CommitList struct {
	Commits []Commit `json:"commits"`
}

// Discussion is a repository discussion thread.
type Discussion struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is a git tag.
type Tag struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Branch is a git branch.
type Branch struct {
	Name      string `json:"name"`
	SHA       string `json:"sha"`
	Protected bool   `json:"protected"`
}

// Contributor is a user with a commit count.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}
